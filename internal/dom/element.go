package dom

import (
	"strings"

	"github.com/dmitrijs2005/autofill/internal/matcher"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element wraps an element node of a Document.
type Element struct {
	n   *html.Node
	doc *Document
}

var _ matcher.Element = (*Element)(nil)

func (e *Element) Node() *html.Node { return e.n }

func (e *Element) Tag() string { return e.n.Data }

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) InputType() string {
	if e.n.DataAtom != atom.Input {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(attr(e.n, "type")))
	if t == "" {
		return "text"
	}
	return t
}

// IsContentEditable follows the nearest contenteditable attribute up the
// tree, like the DOM property of the same name.
func (e *Element) IsContentEditable() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		v, ok := (&Element{n: n}).Attr("contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(v) {
		case "", "true", "plaintext-only":
			return true
		default:
			return false
		}
	}
	return false
}

func (e *Element) Value() string { return nodeValue(e.n) }

// Text returns the concatenated text content.
func (e *Element) Text() string { return textContent(e.n) }

func (e *Element) Checked() bool {
	_, ok := (&Element{n: e.n}).Attr("checked")
	return ok
}

func (e *Element) SetValue(v string) {
	switch e.n.DataAtom {
	case atom.Textarea:
		setText(e.n, v)
	case atom.Select:
		for _, o := range options(e.n) {
			if optionValue(o) == v {
				setAttr(o, "selected", "selected")
			} else {
				removeAttr(o, "selected")
			}
		}
	default:
		setAttr(e.n, "value", v)
	}
}

func (e *Element) SetText(v string) { setText(e.n, v) }

// SetChecked updates the checked attribute. Checking a radio clears the
// other radios of its group in the same form or document.
func (e *Element) SetChecked(checked bool) {
	if !checked {
		removeAttr(e.n, "checked")
		return
	}
	if e.InputType() == "radio" {
		if name := attr(e.n, "name"); name != "" {
			scope := formOf(e.n)
			if scope == nil && e.doc != nil {
				scope = e.doc.root
			}
			eachElement(scope, func(n *html.Node) {
				if n != e.n && n.DataAtom == atom.Input &&
					strings.EqualFold(attr(n, "type"), "radio") && attr(n, "name") == name {
					removeAttr(n, "checked")
				}
			})
		}
	}
	setAttr(e.n, "checked", "checked")
}

func (e *Element) Options() []matcher.Option {
	var out []matcher.Option
	for _, o := range options(e.n) {
		out = append(out, matcher.Option{Value: optionValue(o), Label: textContent(o)})
	}
	return out
}

func (e *Element) Dispatch(event string) {
	if e.doc != nil {
		e.doc.dispatch(e.n, event)
	}
}

// Form is a form element with submit listeners.
type Form struct {
	n   *html.Node
	doc *Document
}

func (f *Form) Node() *html.Node { return f.n }

func (f *Form) Element() *Element { return &Element{n: f.n, doc: f.doc} }

// Controls returns the input, select and textarea descendants in tree order.
func (f *Form) Controls() []*Element {
	var out []*Element
	eachElement(f.n, func(n *html.Node) {
		switch n.DataAtom {
		case atom.Input, atom.Select, atom.Textarea:
			out = append(out, &Element{n: n, doc: f.doc})
		}
	})
	return out
}

// OnSubmit registers l to run on every submission of the form.
func (f *Form) OnSubmit(l SubmitListener) {
	f.doc.mu.Lock()
	defer f.doc.mu.Unlock()
	f.doc.submit[f.n] = append(f.doc.submit[f.n], l)
}

// Submit raises the submit event and runs the form's submit listeners.
func (f *Form) Submit() {
	f.doc.dispatch(f.n, "submit")

	f.doc.mu.Lock()
	ls := append([]SubmitListener(nil), f.doc.submit[f.n]...)
	f.doc.mu.Unlock()

	for _, l := range ls {
		l(f)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func setText(n *html.Node, v string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func eachElement(root *html.Node, fn func(*html.Node)) {
	if root == nil {
		return
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		eachElement(c, fn)
	}
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	eachElement(sel, func(n *html.Node) {
		if n.DataAtom == atom.Option {
			out = append(out, n)
		}
	})
	return out
}

func optionValue(o *html.Node) string {
	for _, a := range o.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, "value") {
			return a.Val
		}
	}
	return strings.TrimSpace(textContent(o))
}

func nodeValue(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		opts := options(n)
		for _, o := range opts {
			if _, ok := (&Element{n: o}).Attr("selected"); ok {
				return optionValue(o)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	case atom.Input:
		t := strings.ToLower(attr(n, "type"))
		if t == "checkbox" || t == "radio" {
			if _, ok := (&Element{n: n}).Attr("value"); !ok {
				return "on"
			}
		}
		return attr(n, "value")
	}
	return ""
}

func formOf(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Form {
			return p
		}
	}
	return nil
}
