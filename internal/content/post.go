package content

import (
	"context"

	"github.com/dmitrijs2005/autofill/internal/messages"
)

// HandlePost answers a post-message from a parent frame. Replies from child
// frames are kept and return nil. Messages arriving after the extension
// context is gone are dropped.
func (a *Agent) HandlePost(ctx context.Context, p messages.PostMessage) *messages.PostMessage {
	if !a.runtime.Valid() {
		a.log.Info(ctx, "extension context invalidated, ignoring post message", "type", p.Type)
		return nil
	}

	switch p.Type {
	case messages.PostCheckForms:
		reply := p.CheckFormsReply(a.checkForms(ctx))
		return &reply
	case messages.PostAutofill:
		reply := p.AutofillReply(a.autofillOnce(ctx, p.ProfileKey, p.EncryptionKey))
		return &reply
	case messages.PostAutofillResponse, messages.PostCheckFormsResponse:
		a.log.Info(ctx, "iframe answered", "type", p.Type, "status", p.Status, "has_forms", p.HasForms)
		a.mu.Lock()
		a.replies = append(a.replies, p)
		a.mu.Unlock()
	}
	return nil
}

// Replies returns the post-message answers received from child frames.
func (a *Agent) Replies() []messages.PostMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]messages.PostMessage(nil), a.replies...)
}

// autofillOnce is the cross-origin variant of autofill: one pass, no retry.
func (a *Agent) autofillOnce(ctx context.Context, key, passphrase string) messages.Status {
	fields, err := a.store.Resolve(ctx, key, passphrase)
	if err != nil {
		return errorResponse(err).Status
	}
	if a.fill(ctx, fields, key, passphrase, true).Any() {
		return messages.StatusSuccess
	}
	return messages.StatusNoFields
}
