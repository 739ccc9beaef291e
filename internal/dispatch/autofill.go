package dispatch

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/autofill/internal/common"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/messages"
)

// Status texts shown by the popup and background surfaces.
const (
	TextFilled          = "Form filled!"
	TextFilledInIframe  = "Form filled in iframe!"
	TextNoProfile       = "Profile not found."
	TextInvalidKey      = "Invalid encryption key."
	TextNoFields        = "No matching fields found."
	TextFailed          = "Failed to fill form."
	TextContextInvalid  = "Extension context invalidated. Please reload the extension."
	TextConnectivity    = "Failed to connect to page. Try reloading."
	TextFormOnPage      = "Form detected on page."
	TextFormInIframe    = "Form detected in iframe."
	TextNoFormsDetected = "No forms detected."
)

// Outcome is the result of an autofill dispatch.
type Outcome struct {
	// Main is frame 0's answer.
	Main messages.Response
	// Frames holds the best-effort answers of every other frame.
	Frames []FrameResult
}

// IframeFilled reports whether any non-top frame answered success.
func (o Outcome) IframeFilled() bool {
	for _, f := range o.Frames {
		if f.Err == nil && f.Response.Status == messages.StatusSuccess {
			return true
		}
	}
	return false
}

// Text is the status line for frame 0's answer.
func (o Outcome) Text() string {
	switch o.Main.Status {
	case messages.StatusSuccess:
		return TextFilled
	case messages.StatusNoProfile:
		return TextNoProfile
	case messages.StatusInvalidKey:
		return TextInvalidKey
	case messages.StatusContextInvalidated:
		return TextContextInvalid
	case messages.StatusNoFields:
		return TextNoFields
	default:
		return TextFailed
	}
}

// ErrorText maps a dispatch error to its status line.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, common.ErrContextInvalidated):
		return TextContextInvalid
	case errors.Is(err, ErrConnectivity):
		return TextConnectivity
	default:
		return TextFailed
	}
}

// Autofill tells every frame of tabID to fill with the named profile.
//
// Frame 0 goes first. If it never answers, ErrConnectivity is returned and
// no other frame is contacted. Once it answers, whatever the status, every
// other frame is sent the same instruction once.
func (d *Dispatcher) Autofill(ctx context.Context, tabID int, profileKey, encryptionKey string) (Outcome, error) {
	if err := lifecycle.Check(d.runtime); err != nil {
		outcomes.WithLabelValues(string(messages.StatusContextInvalidated)).Inc()
		return Outcome{}, err
	}

	msg := messages.Autofill{ProfileKey: profileKey, EncryptionKey: encryptionKey}
	main, err := d.sendMain(ctx, tabID, msg)
	if err != nil {
		outcomes.WithLabelValues(outcomeLabel(err)).Inc()
		d.log.Error(ctx, "autofill dispatch failed", "tab", tabID, "profile", profileKey, "error", err)
		return Outcome{}, err
	}
	outcomes.WithLabelValues(string(main.Status)).Inc()
	d.log.Info(ctx, "main frame answered", "tab", tabID, "profile", profileKey, "status", main.Status)

	out := Outcome{Main: main}
	out.Frames, err = d.sendOthers(ctx, tabID, msg)
	if err != nil {
		return out, err
	}
	return out, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrContextInvalidated):
		return string(messages.StatusContextInvalidated)
	case errors.Is(err, ErrConnectivity):
		return "connectivity"
	default:
		return string(messages.StatusError)
	}
}

// CheckForms asks frame 0 whether the tab shows a form, falling back to the
// other frames only when frame 0 has none. It returns one of the TextForm*
// or TextNoFormsDetected lines.
func (d *Dispatcher) CheckForms(ctx context.Context, tabID int) (string, error) {
	if err := lifecycle.Check(d.runtime); err != nil {
		return "", err
	}

	msg := messages.CheckForms{}
	main, err := d.sendMain(ctx, tabID, msg)
	if err != nil {
		return "", err
	}
	if main.Found() {
		return TextFormOnPage, nil
	}

	others, err := d.sendOthers(ctx, tabID, msg)
	if err != nil {
		return "", err
	}
	for _, f := range others {
		if f.Err == nil && f.Response.Found() {
			return TextFormInIframe, nil
		}
	}
	return TextNoFormsDetected, nil
}

// Broadcast sends msg once to frame 0 and then to every other frame. No
// retry applies and delivery failures are only logged.
func (d *Dispatcher) Broadcast(ctx context.Context, tabID int, msg messages.Message) error {
	if err := lifecycle.Check(d.runtime); err != nil {
		return err
	}

	deliveryAttempts.WithLabelValues(string(msg.Action())).Inc()
	if _, err := d.messenger.SendToFrame(ctx, tabID, MainFrame, msg); err != nil {
		d.log.Info(ctx, "main frame delivery failed", "tab", tabID, "action", msg.Action(), "error", err)
	}

	_, err := d.sendOthers(ctx, tabID, msg)
	return err
}
