// Package content implements the per-frame agent: the part of the extension
// that runs inside each page frame and touches its document.
package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/autofill/internal/common"
	"github.com/dmitrijs2005/autofill/internal/dom"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/matcher"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/dmitrijs2005/autofill/internal/models"
	"github.com/dmitrijs2005/autofill/internal/profiles"
	"github.com/dmitrijs2005/autofill/internal/record"
)

// Frame is the browsing context an agent runs in.
type Frame interface {
	Document() *dom.Document
	Children() []Child
}

// Child is an iframe of the agent's frame.
type Child interface {
	// Document returns the child document when the parent may script it.
	Document() (*dom.Document, bool)
	// Post sends a post-message to the child window.
	Post(ctx context.Context, msg messages.PostMessage) error
}

type Options struct {
	FillAttempts int
	FillDelay    time.Duration
	Table        matcher.Table
}

func DefaultOptions() Options {
	return Options{FillAttempts: 5, FillDelay: time.Second, Table: matcher.DefaultTable}
}

// Agent answers runtime messages and post-messages for one frame.
type Agent struct {
	frame    Frame
	store    profiles.Store
	runtime  lifecycle.Checker
	observer *record.Observer
	opts     Options
	log      logging.Logger

	mu      sync.Mutex
	replies []messages.PostMessage
}

func NewAgent(frame Frame, store profiles.Store, rt lifecycle.Checker, sender record.Sender, opts Options, log logging.Logger) *Agent {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Table == nil {
		opts.Table = matcher.DefaultTable
	}
	if opts.FillAttempts < 1 {
		opts.FillAttempts = 1
	}
	return &Agent{
		frame:    frame,
		store:    store,
		runtime:  rt,
		observer: record.NewObserver(sender, rt, log),
		opts:     opts,
		log:      log,
	}
}

// Handle answers one runtime message. Messages meant for other contexts get
// an empty response.
func (a *Agent) Handle(ctx context.Context, msg messages.Message) (messages.Response, error) {
	if !a.runtime.Valid() {
		a.log.Info(ctx, "extension context invalidated, ignoring message", "action", msg.Action())
		return messages.Response{Status: messages.StatusContextInvalidated}, nil
	}

	switch m := msg.(type) {
	case messages.Autofill:
		return a.autofill(ctx, m.ProfileKey, m.EncryptionKey), nil
	case messages.CheckForms:
		return messages.Forms(a.checkForms(ctx)), nil
	case messages.ToggleRecordMode:
		a.toggleRecordMode(ctx, m.Enabled)
		return messages.Response{}, nil
	case messages.RecordData, messages.RefreshProfiles, messages.ShowError:
		return messages.Response{}, nil
	default:
		return messages.Response{}, fmt.Errorf("%w: %T", messages.ErrUnknownAction, msg)
	}
}

// autofill resolves the profile and fills the frame, retrying while nothing
// matches since dynamic pages may render their forms late.
func (a *Agent) autofill(ctx context.Context, key, passphrase string) messages.Response {
	for attempt := 1; ; attempt++ {
		if !a.runtime.Valid() {
			return messages.Response{Status: messages.StatusContextInvalidated}
		}

		fields, err := a.store.Resolve(ctx, key, passphrase)
		if err != nil {
			return errorResponse(err)
		}

		res := a.fill(ctx, fields, key, passphrase, attempt == 1)
		a.log.Debug(ctx, "autofill pass", "attempt", attempt, "filled", res.Filled, "fields", res.Fields)
		if res.Any() {
			return messages.Response{Status: messages.StatusSuccess}
		}
		if attempt >= a.opts.FillAttempts {
			return messages.Response{Status: messages.StatusNoFields}
		}
		if err := sleep(ctx, a.opts.FillDelay); err != nil {
			return messages.Response{Status: messages.StatusError, Message: err.Error()}
		}
	}
}

func errorResponse(err error) messages.Response {
	switch {
	case errors.Is(err, profiles.ErrNoProfile):
		return messages.Response{Status: messages.StatusNoProfile}
	case errors.Is(err, profiles.ErrInvalidKey):
		return messages.Response{Status: messages.StatusInvalidKey}
	case errors.Is(err, common.ErrContextInvalidated):
		return messages.Response{Status: messages.StatusContextInvalidated}
	default:
		return messages.Response{Status: messages.StatusError, Message: err.Error()}
	}
}

// fill runs one matcher pass over the frame document and every scriptable
// child document. Cross-origin children are asked over post-message when
// post is set.
func (a *Agent) fill(ctx context.Context, fields models.FieldSet, key, passphrase string, post bool) matcher.Result {
	res := a.opts.Table.Fill(a.frame.Document().Targets(), fields)
	for _, c := range a.frame.Children() {
		if doc, ok := c.Document(); ok {
			res = res.Merge(a.opts.Table.Fill(doc.Targets(), fields))
			continue
		}
		if !post {
			continue
		}
		if err := c.Post(ctx, messages.NewPostAutofill(key, passphrase)); err != nil {
			a.log.Info(ctx, "cannot reach iframe", "error", err)
		}
	}
	return res
}

func (a *Agent) checkForms(ctx context.Context) bool {
	has := a.frame.Document().HasForms()
	for _, c := range a.frame.Children() {
		if doc, ok := c.Document(); ok {
			has = has || doc.HasForms()
			continue
		}
		if err := c.Post(ctx, messages.NewPostCheckForms()); err != nil {
			a.log.Info(ctx, "cannot reach iframe", "error", err)
		}
	}
	return has
}

func (a *Agent) toggleRecordMode(ctx context.Context, enabled bool) {
	a.observer.SetEnabled(enabled)
	if !enabled {
		return
	}

	forms := a.frame.Document().Forms()
	for _, c := range a.frame.Children() {
		if doc, ok := c.Document(); ok {
			forms = append(forms, doc.Forms()...)
		}
	}
	n := a.observer.Attach(forms)
	a.log.Info(ctx, "record mode enabled", "forms", len(forms), "attached", n)
}

// Recording reports whether record mode is on for this frame.
func (a *Agent) Recording() bool { return a.observer.Enabled() }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
