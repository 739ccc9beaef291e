// Package host models the browser around the extension: tabs and their
// frame trees, runtime and tab messaging, post-messaging between frames,
// context menus and the extension lifecycle.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dmitrijs2005/autofill/internal/content"
	"github.com/dmitrijs2005/autofill/internal/dom"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/dmitrijs2005/autofill/internal/profiles"
)

var (
	ErrNoReceiver = errors.New("could not establish connection: receiving end does not exist")
	ErrNoTab      = errors.New("no such tab")
	ErrNoFrame    = errors.New("no such frame")
)

// maxFrameDepth bounds iframe nesting when building a tab.
const maxFrameDepth = 8

// RuntimeListener receives runtime messages in an extension page.
type RuntimeListener interface {
	HandleRuntime(ctx context.Context, msg messages.Message)
}

// Tab is an open page with its frames in depth-first order.
type Tab struct {
	ID     int
	frames []*Frame

	mu sync.Mutex
}

func (t *Tab) Main() *Frame { return t.frames[0] }

func (t *Tab) Frames() []*Frame { return append([]*Frame(nil), t.frames...) }

func (t *Tab) Frame(id int) (*Frame, bool) {
	for _, f := range t.frames {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Browser hosts tabs, content agents and extension pages.
type Browser struct {
	store   profiles.Store
	runtime *lifecycle.Context
	loader  *Loader
	opts    content.Options
	log     logging.Logger
	menus   Menus

	mu        sync.Mutex
	tabs      map[int]*Tab
	nextTab   int
	active    int
	listeners map[string]RuntimeListener
}

func NewBrowser(store profiles.Store, rt *lifecycle.Context, loader *Loader, opts content.Options, log logging.Logger) *Browser {
	if log == nil {
		log = logging.Nop()
	}
	return &Browser{
		store:     store,
		runtime:   rt,
		loader:    loader,
		opts:      opts,
		log:       log,
		tabs:      make(map[int]*Tab),
		nextTab:   1,
		active:    -1,
		listeners: make(map[string]RuntimeListener),
	}
}

func (b *Browser) Runtime() *lifecycle.Context { return b.runtime }

func (b *Browser) Menus() *Menus { return &b.menus }

// Open loads rawURL into a new active tab.
func (b *Browser) Open(ctx context.Context, rawURL string) (*Tab, error) {
	if b.loader == nil {
		return nil, errors.New("no page loader configured")
	}
	p, err := b.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return b.OpenPage(ctx, p)
}

// OpenHTML opens an in-memory page as a new active tab.
func (b *Browser) OpenHTML(ctx context.Context, page, pageURL string) (*Tab, error) {
	return b.OpenPage(ctx, &Page{URL: pageURL, Body: []byte(page), ContentType: "text/html; charset=utf-8"})
}

func (b *Browser) OpenPage(ctx context.Context, p *Page) (*Tab, error) {
	doc, err := dom.Parse(bytes.NewReader(p.Body), p.URL, p.ContentType)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	tab := &Tab{ID: b.nextTab}
	b.nextTab++
	b.mu.Unlock()

	main := &Frame{ID: 0, URL: p.URL, doc: doc}
	tab.frames = append(tab.frames, main)
	b.buildChildren(ctx, tab, main, 1)

	for _, f := range tab.frames {
		b.inject(tab, f)
	}

	b.mu.Lock()
	b.tabs[tab.ID] = tab
	b.active = tab.ID
	b.mu.Unlock()

	b.log.Info(ctx, "tab opened", "tab", tab.ID, "url", p.URL, "frames", len(tab.frames))
	return tab, nil
}

// buildChildren appends the iframes of parent depth first, so ids follow
// document order with every subtree numbered before its next sibling.
func (b *Browser) buildChildren(ctx context.Context, tab *Tab, parent *Frame, depth int) {
	if depth > maxFrameDepth {
		return
	}
	for _, ref := range parent.doc.Frames() {
		child := &Frame{ID: len(tab.frames), Name: ref.Name, parent: parent}
		switch {
		case ref.HasDoc:
			child.URL = "about:srcdoc"
			child.doc = b.parseOrBlank(ctx, []byte(ref.SrcDoc), parent.URL, "text/html; charset=utf-8")
		case ref.Src != "":
			child.URL = ref.Src
			child.CrossOrigin = !parent.doc.SameOrigin(ref.Src)
			child.doc = b.loadOrBlank(ctx, ref.Src)
		default:
			child.URL = "about:blank"
			child.doc = b.parseOrBlank(ctx, nil, parent.URL, "")
		}

		parent.children = append(parent.children, child)
		tab.frames = append(tab.frames, child)
		b.buildChildren(ctx, tab, child, depth+1)
	}
}

func (b *Browser) loadOrBlank(ctx context.Context, rawURL string) *dom.Document {
	if b.loader != nil {
		p, err := b.loader.Load(ctx, rawURL)
		if err == nil {
			return b.parseOrBlank(ctx, p.Body, p.URL, p.ContentType)
		}
		b.log.Warn(ctx, "iframe not loaded", "url", rawURL, "error", err)
	}
	return b.parseOrBlank(ctx, nil, rawURL, "")
}

func (b *Browser) parseOrBlank(ctx context.Context, body []byte, baseURL, contentType string) *dom.Document {
	doc, err := dom.Parse(bytes.NewReader(body), baseURL, contentType)
	if err != nil {
		b.log.Warn(ctx, "frame document not parsed", "url", baseURL, "error", err)
		doc, _ = dom.Parse(bytes.NewReader(nil), "", "")
	}
	return doc
}

func (b *Browser) inject(tab *Tab, f *Frame) {
	log := b.log.With("tab", tab.ID, "frame", f.ID)
	f.agent = content.NewAgent(f, b.store, b.runtime, b.RuntimeFrom("content"), b.opts, log)
}

// Detach removes the content agent of a frame, as when its script has not
// loaded yet.
func (b *Browser) Detach(tabID, frameID int) error {
	tab, err := b.Tab(tabID)
	if err != nil {
		return err
	}
	tab.mu.Lock()
	defer tab.mu.Unlock()
	f, ok := tab.Frame(frameID)
	if !ok {
		return fmt.Errorf("tab %d frame %d: %w", tabID, frameID, ErrNoFrame)
	}
	f.agent = nil
	return nil
}

// Reinject gives a frame a fresh content agent.
func (b *Browser) Reinject(tabID, frameID int) error {
	tab, err := b.Tab(tabID)
	if err != nil {
		return err
	}
	tab.mu.Lock()
	defer tab.mu.Unlock()
	f, ok := tab.Frame(frameID)
	if !ok {
		return fmt.Errorf("tab %d frame %d: %w", tabID, frameID, ErrNoFrame)
	}
	b.inject(tab, f)
	return nil
}

func (b *Browser) Tab(id int) (*Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[id]
	if !ok {
		return nil, fmt.Errorf("tab %d: %w", id, ErrNoTab)
	}
	return t, nil
}

// Tabs returns the open tab ids in ascending order.
func (b *Browser) Tabs() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.tabs))
	for id := range b.tabs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (b *Browser) CloseTab(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tabs, id)
	if b.active == id {
		b.active = -1
	}
}

// ActiveTab returns the focused tab of the current window.
func (b *Browser) ActiveTab() (*Tab, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[b.active]
	return t, ok
}

// ActiveTabID returns the id of the focused tab.
func (b *Browser) ActiveTabID() (int, bool) {
	t, ok := b.ActiveTab()
	if !ok {
		return 0, false
	}
	return t.ID, true
}

func (b *Browser) Activate(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tabs[id]; !ok {
		return fmt.Errorf("tab %d: %w", id, ErrNoTab)
	}
	b.active = id
	return nil
}

func (b *Browser) frame(tabID, frameID int) (*Frame, error) {
	tab, err := b.Tab(tabID)
	if err != nil {
		return nil, err
	}
	f, ok := tab.Frame(frameID)
	if !ok {
		return nil, fmt.Errorf("tab %d frame %d: %w", tabID, frameID, ErrNoFrame)
	}
	return f, nil
}

// SendToFrame delivers a runtime message to the content agent of one frame.
// Messages to the same tab are handled one at a time.
func (b *Browser) SendToFrame(ctx context.Context, tabID, frameID int, msg messages.Message) (messages.Response, error) {
	if err := lifecycle.Check(b.runtime); err != nil {
		return messages.Response{}, err
	}
	tab, err := b.Tab(tabID)
	if err != nil {
		return messages.Response{}, err
	}

	tab.mu.Lock()
	defer tab.mu.Unlock()

	f, ok := tab.Frame(frameID)
	if !ok || f.agent == nil {
		return messages.Response{}, fmt.Errorf("tab %d frame %d: %w", tabID, frameID, ErrNoReceiver)
	}
	return f.agent.Handle(ctx, msg)
}

// Frames lists the frame ids of a tab, main frame first.
func (b *Browser) Frames(_ context.Context, tabID int) ([]int, error) {
	tab, err := b.Tab(tabID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(tab.frames))
	for i, f := range tab.frames {
		ids[i] = f.ID
	}
	return ids, nil
}

// AddRuntimeListener registers an extension page under a unique name.
func (b *Browser) AddRuntimeListener(name string, l RuntimeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = l
}

func (b *Browser) RemoveRuntimeListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, name)
}

// RuntimeSender broadcasts runtime messages on behalf of one context.
type RuntimeSender struct {
	b    *Browser
	from string
}

// RuntimeFrom returns the sender used by the named context. A context never
// receives its own messages.
func (b *Browser) RuntimeFrom(name string) RuntimeSender {
	return RuntimeSender{b: b, from: name}
}

// SendRuntime delivers msg to every extension page except the sender. It
// fails with ErrNoReceiver when nobody listens.
func (s RuntimeSender) SendRuntime(ctx context.Context, msg messages.Message) error {
	if err := lifecycle.Check(s.b.runtime); err != nil {
		return err
	}

	s.b.mu.Lock()
	names := make([]string, 0, len(s.b.listeners))
	for name := range s.b.listeners {
		if name != s.from {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	targets := make([]RuntimeListener, len(names))
	for i, n := range names {
		targets[i] = s.b.listeners[n]
	}
	s.b.mu.Unlock()

	if len(targets) == 0 {
		return fmt.Errorf("%s: %w", msg.Action(), ErrNoReceiver)
	}
	for _, l := range targets {
		l.HandleRuntime(ctx, msg)
	}
	return nil
}

// Submit submits the n-th form of a frame, running its submit listeners.
func (b *Browser) Submit(tabID, frameID, n int) error {
	tab, err := b.Tab(tabID)
	if err != nil {
		return err
	}
	tab.mu.Lock()
	defer tab.mu.Unlock()
	f, ok := tab.Frame(frameID)
	if !ok {
		return fmt.Errorf("tab %d frame %d: %w", tabID, frameID, ErrNoFrame)
	}

	forms := f.doc.Forms()
	if n < 0 || n >= len(forms) {
		return fmt.Errorf("frame %d has %d forms, no form %d", frameID, len(forms), n)
	}
	forms[n].Submit()
	return nil
}

// Render writes the current HTML of a frame.
func (b *Browser) Render(tabID, frameID int, w io.Writer) error {
	f, err := b.frame(tabID, frameID)
	if err != nil {
		return err
	}
	return f.doc.Render(w)
}
