// Package record turns observed form submissions into profile field sets.
package record

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/autofill/internal/dom"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/matcher"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/dmitrijs2005/autofill/internal/models"
	"golang.org/x/net/html"
)

// Sender delivers a runtime message to the extension's other contexts.
type Sender interface {
	SendRuntime(ctx context.Context, msg messages.Message) error
}

// Control is what Capture reads from a form control.
type Control interface {
	Attr(name string) (string, bool)
	Value() string
}

// Capture classifies every control by its name attribute. The first control
// classified as a field wins; unnamed and unmatched controls are ignored.
func Capture(table matcher.Table, controls []Control) models.FieldSet {
	var fs models.FieldSet
	seen := map[models.Field]bool{}
	for _, c := range controls {
		name, _ := c.Attr("name")
		f, ok := table.Classify(name)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		fs.Set(f, c.Value())
	}
	return fs
}

// Observer attaches submit listeners to forms while record mode is on.
//
// Attaching is idempotent per form node. Turning record mode off leaves the
// listeners in place but makes them inert, and turning it on again reuses
// them.
type Observer struct {
	table   matcher.Table
	sender  Sender
	runtime lifecycle.Checker
	log     logging.Logger

	mu       sync.Mutex
	enabled  bool
	attached map[*html.Node]struct{}
}

func NewObserver(sender Sender, rt lifecycle.Checker, log logging.Logger) *Observer {
	if log == nil {
		log = logging.Nop()
	}
	return &Observer{
		table:    matcher.DefaultTable,
		sender:   sender,
		runtime:  rt,
		log:      log,
		attached: make(map[*html.Node]struct{}),
	}
}

func (o *Observer) SetEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = enabled
}

func (o *Observer) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled
}

// Attach registers the observer on every form not seen before and returns
// how many were new.
func (o *Observer) Attach(forms []*dom.Form) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, f := range forms {
		if _, ok := o.attached[f.Node()]; ok {
			continue
		}
		o.attached[f.Node()] = struct{}{}
		f.OnSubmit(o.onSubmit)
		n++
	}
	return n
}

func (o *Observer) onSubmit(f *dom.Form) {
	ctx := context.Background()
	if !o.Enabled() {
		return
	}
	if err := lifecycle.Check(o.runtime); err != nil {
		o.log.Warn(ctx, "submission ignored", "error", err)
		return
	}

	els := f.Controls()
	controls := make([]Control, len(els))
	for i, e := range els {
		controls[i] = e
	}
	details := Capture(o.table, controls)

	o.log.Info(ctx, "recording form data", "fields", details.Filled())
	if err := o.sender.SendRuntime(ctx, messages.RecordData{Details: details}); err != nil {
		o.log.Error(ctx, "record data not delivered", "error", err)
	}
}
