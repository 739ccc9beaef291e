// Package lifecycle models the extension runtime context. A context starts
// valid and becomes invalid, permanently, when the extension is reloaded or
// disabled; every host-facing step checks it before doing any work.
package lifecycle

import (
	"sync/atomic"

	"github.com/dmitrijs2005/autofill/internal/common"
)

// Checker reports whether the runtime context is still usable.
type Checker interface {
	Valid() bool
}

// Context is the default Checker. The zero value is not valid; use New.
type Context struct {
	invalid atomic.Bool
	started atomic.Bool
}

// New returns a valid runtime context.
func New() *Context {
	c := &Context{}
	c.started.Store(true)
	return c
}

// Valid reports whether the context has been started and not invalidated.
func (c *Context) Valid() bool {
	return c != nil && c.started.Load() && !c.invalid.Load()
}

// Invalidate marks the context as unusable. It cannot be undone.
func (c *Context) Invalidate() {
	c.invalid.Store(true)
}

// Check returns common.ErrContextInvalidated when c is nil or not valid.
func Check(c Checker) error {
	if c == nil || !c.Valid() {
		return common.ErrContextInvalidated
	}
	return nil
}

// AlwaysValid is a Checker for collaborators that live outside any extension
// runtime, e.g. the relay server process.
type AlwaysValid struct{}

func (AlwaysValid) Valid() bool { return true }
