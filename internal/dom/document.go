package dom

import (
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/dmitrijs2005/autofill/internal/matcher"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event is one event raised on the page.
type Event struct {
	Type   string
	Tag    string
	Name   string
	ID     string
	Value  string
	target *html.Node
}

// Listener observes events raised anywhere in a document.
type Listener func(Event)

// SubmitListener observes a form submission.
type SubmitListener func(*Form)

// Document is a parsed page.
type Document struct {
	root *html.Node
	url  *url.URL

	mu        sync.Mutex
	events    []Event
	listeners []Listener
	submit    map[*html.Node][]SubmitListener
}

func newDocument(root *html.Node, u *url.URL) *Document {
	return &Document{root: root, url: u, submit: make(map[*html.Node][]SubmitListener)}
}

// URL returns the page address, or nil for documents without one.
func (d *Document) URL() *url.URL { return d.url }

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// AddListener registers l for every event raised on the document.
func (d *Document) AddListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Events returns a copy of the event log.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

func (d *Document) dispatch(n *html.Node, typ string) {
	e := Event{
		Type:   typ,
		Tag:    n.Data,
		Name:   attr(n, "name"),
		ID:     attr(n, "id"),
		Value:  nodeValue(n),
		target: n,
	}

	d.mu.Lock()
	d.events = append(d.events, e)
	ls := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()

	for _, l := range ls {
		l(e)
	}
}

// Elements returns every element of the document in tree order, descending
// into open shadow roots.
func (d *Document) Elements() []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Template {
				if isOpenShadowRoot(c) {
					walk(c)
				}
				continue
			}
			out = append(out, &Element{n: c, doc: d})
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// Targets adapts Elements to matcher.Target.
func (d *Document) Targets() matcher.Elements {
	els := d.Elements()
	out := make(matcher.Elements, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out
}

func isOpenShadowRoot(n *html.Node) bool {
	return strings.EqualFold(attr(n, "shadowrootmode"), "open")
}

// inLightTree reports whether n is outside every template.
func inLightTree(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Template {
			return false
		}
	}
	return true
}

// Forms returns the forms of the light tree in document order.
func (d *Document) Forms() []*Form {
	var out []*Form
	goquery.NewDocumentFromNode(d.root).Find("form").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if inLightTree(n) {
			out = append(out, &Form{n: n, doc: d})
		}
	})
	return out
}

// FrameRef describes an iframe element of the document.
type FrameRef struct {
	Name   string
	Src    string
	SrcDoc string
	HasDoc bool
}

// Frames returns the iframes of the light tree in document order. Src is
// resolved against the document URL.
func (d *Document) Frames() []FrameRef {
	var out []FrameRef
	goquery.NewDocumentFromNode(d.root).Find("iframe").Each(func(_ int, s *goquery.Selection) {
		if !inLightTree(s.Get(0)) {
			return
		}
		ref := FrameRef{Name: s.AttrOr("name", s.AttrOr("id", ""))}
		ref.SrcDoc, ref.HasDoc = s.Attr("srcdoc")
		if src, ok := s.Attr("src"); ok && src != "" {
			ref.Src = d.resolve(src)
		}
		out = append(out, ref)
	})
	return out
}

func (d *Document) resolve(ref string) string {
	if d.url == nil {
		return ref
	}
	u, err := d.url.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// SameOrigin reports whether rawURL shares scheme and host with the document.
func (d *Document) SameOrigin(rawURL string) bool {
	if d.url == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, d.url.Scheme) && strings.EqualFold(u.Host, d.url.Host)
}

const formControlsXPath = `//form | //input | //select | //textarea | //*[@contenteditable and @contenteditable!='false']`

// HasForms reports whether the document holds a form or form control,
// including inside open shadow roots.
func (d *Document) HasForms() bool {
	nodes, err := htmlquery.QueryAll(d.root, formControlsXPath)
	if err == nil {
		for _, n := range nodes {
			if inLightTree(n) {
				return true
			}
		}
	}

	els := d.Elements()
	me := make([]matcher.Element, len(els))
	for i, e := range els {
		me[i] = e
	}
	return matcher.HasFormControls(me)
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// Query returns the first light-tree element matching a CSS selector.
func (d *Document) Query(selector string) *Element {
	var found *Element
	goquery.NewDocumentFromNode(d.root).Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if n := s.Get(0); inLightTree(n) {
			found = &Element{n: n, doc: d}
			return false
		}
		return true
	})
	return found
}
