package messages

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostType names a cross-document post-message.
type PostType string

const (
	PostCheckForms         PostType = "checkForms"
	PostCheckFormsResponse PostType = "checkFormsResponse"
	PostAutofill           PostType = "autofill"
	PostAutofillResponse   PostType = "autofillResponse"
)

// PostMessage travels between a frame and its cross-origin children.
// Responses echo the RequestID of the request they answer.
type PostMessage struct {
	Type          PostType `json:"type"`
	RequestID     string   `json:"requestId,omitempty"`
	ProfileKey    string   `json:"profileKey,omitempty"`
	EncryptionKey string   `json:"encryptionKey,omitempty"`
	Status        Status   `json:"status,omitempty"`
	HasForms      *bool    `json:"hasForms,omitempty"`
}

func NewPostAutofill(profileKey, encryptionKey string) PostMessage {
	return PostMessage{
		Type:          PostAutofill,
		RequestID:     uuid.NewString(),
		ProfileKey:    profileKey,
		EncryptionKey: encryptionKey,
	}
}

func NewPostCheckForms() PostMessage {
	return PostMessage{Type: PostCheckForms, RequestID: uuid.NewString()}
}

// AutofillReply answers an autofill request.
func (p PostMessage) AutofillReply(s Status) PostMessage {
	return PostMessage{Type: PostAutofillResponse, RequestID: p.RequestID, Status: s}
}

// CheckFormsReply answers a checkForms request.
func (p PostMessage) CheckFormsReply(has bool) PostMessage {
	return PostMessage{Type: PostCheckFormsResponse, RequestID: p.RequestID, HasForms: &has}
}

// IsResponse reports whether p answers an earlier request.
func (p PostMessage) IsResponse() bool {
	return p.Type == PostAutofillResponse || p.Type == PostCheckFormsResponse
}

// DecodePost parses a post-message, rejecting unknown types.
func DecodePost(b []byte) (PostMessage, error) {
	var p PostMessage
	if err := json.Unmarshal(b, &p); err != nil {
		return PostMessage{}, fmt.Errorf("decode post message: %w", err)
	}
	switch p.Type {
	case PostCheckForms, PostCheckFormsResponse, PostAutofill, PostAutofillResponse:
		return p, nil
	}
	return PostMessage{}, fmt.Errorf("%w: %q", ErrUnknownAction, p.Type)
}
