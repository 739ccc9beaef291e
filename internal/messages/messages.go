// Package messages defines the runtime and post-message vocabularies shared
// by the background, content and popup contexts.
//
// Runtime messages form a closed set: every concrete type implements Message
// and receivers switch over them exhaustively. On the wire a message is a JSON
// object whose "action" field names the kind.
package messages

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/autofill/internal/models"
)

type Action string

const (
	ActionAutofill         Action = "autofill"
	ActionCheckForms       Action = "checkForms"
	ActionToggleRecordMode Action = "toggleRecordMode"
	ActionRecordData       Action = "recordData"
	ActionRefreshProfiles  Action = "refreshProfiles"
	ActionShowError        Action = "showError"
)

var ErrUnknownAction = errors.New("unknown message action")

// Message is implemented only by the types of this package.
type Message interface {
	Action() Action
	message()
}

// Autofill asks a frame to fill its forms with a stored profile.
type Autofill struct {
	ProfileKey    string `json:"profileKey"`
	EncryptionKey string `json:"encryptionKey"`
}

// CheckForms asks a frame whether it holds any form controls.
type CheckForms struct{}

// ToggleRecordMode switches form-submission recording on or off.
type ToggleRecordMode struct {
	Enabled bool `json:"enabled"`
}

// RecordData carries the fields captured from a submitted form.
type RecordData struct {
	Details models.FieldSet `json:"details"`
}

// RefreshProfiles tells listing surfaces to re-read the profile mapping.
type RefreshProfiles struct{}

// ShowError asks UI surfaces to show a transient status.
type ShowError struct {
	Message string `json:"message"`
}

func (Autofill) Action() Action         { return ActionAutofill }
func (CheckForms) Action() Action       { return ActionCheckForms }
func (ToggleRecordMode) Action() Action { return ActionToggleRecordMode }
func (RecordData) Action() Action       { return ActionRecordData }
func (RefreshProfiles) Action() Action  { return ActionRefreshProfiles }
func (ShowError) Action() Action        { return ActionShowError }

func (Autofill) message()         {}
func (CheckForms) message()       {}
func (ToggleRecordMode) message() {}
func (RecordData) message()       {}
func (RefreshProfiles) message()  {}
func (ShowError) message()        {}

// Encode serializes m with its action discriminator.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Action(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Action(), err)
	}
	action, _ := json.Marshal(m.Action())
	fields["action"] = action

	return json.Marshal(fields)
}

// Decode parses a message produced by Encode.
func Decode(b []byte) (Message, error) {
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var m Message
	switch head.Action {
	case ActionAutofill:
		var v Autofill
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Action, err)
		}
		m = v
	case ActionCheckForms:
		m = CheckForms{}
	case ActionToggleRecordMode:
		var v ToggleRecordMode
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Action, err)
		}
		m = v
	case ActionRecordData:
		var v RecordData
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Action, err)
		}
		m = v
	case ActionRefreshProfiles:
		m = RefreshProfiles{}
	case ActionShowError:
		var v ShowError
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Action, err)
		}
		m = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Action)
	}
	return m, nil
}
