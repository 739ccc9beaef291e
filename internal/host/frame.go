package host

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/autofill/internal/content"
	"github.com/dmitrijs2005/autofill/internal/dom"
	"github.com/dmitrijs2005/autofill/internal/messages"
)

// Frame is one browsing context of a tab.
type Frame struct {
	ID   int
	Name string
	URL  string

	// CrossOrigin is set when the parent may not script this frame.
	CrossOrigin bool

	parent   *Frame
	children []*Frame
	doc      *dom.Document
	agent    *content.Agent
}

var _ content.Frame = (*Frame)(nil)

func (f *Frame) Document() *dom.Document { return f.doc }

func (f *Frame) Parent() *Frame { return f.parent }

// Agent returns the content agent injected into the frame, if any.
func (f *Frame) Agent() *content.Agent { return f.agent }

func (f *Frame) Children() []content.Child {
	out := make([]content.Child, len(f.children))
	for i, c := range f.children {
		out[i] = childRef{parent: f, child: c}
	}
	return out
}

type childRef struct {
	parent *Frame
	child  *Frame
}

func (c childRef) Document() (*dom.Document, bool) {
	if c.child.CrossOrigin {
		return nil, false
	}
	return c.child.doc, true
}

// Post delivers msg to the child's agent and routes its reply back to the
// parent's agent, as window.postMessage does in both directions.
func (c childRef) Post(ctx context.Context, msg messages.PostMessage) error {
	target := c.child.agent
	if target == nil {
		return fmt.Errorf("frame %d: %w", c.child.ID, ErrNoReceiver)
	}
	reply := target.HandlePost(ctx, msg)
	if reply == nil || c.parent.agent == nil {
		return nil
	}
	c.parent.agent.HandlePost(ctx, *reply)
	return nil
}
