package matcher

// Option is one entry of a select control.
type Option struct {
	Value string
	Label string
}

// Element is the capability set the matcher needs from a DOM element.
// Tag and InputType are lower case; InputType is "text" for an input
// without a type attribute and "" for non-input elements.
type Element interface {
	Tag() string
	Attr(name string) (string, bool)
	InputType() string
	IsContentEditable() bool
	Value() string

	SetValue(v string)
	SetText(v string)
	SetChecked(checked bool)
	Options() []Option

	// Dispatch raises a bubbling event of the given type on the element.
	Dispatch(event string)
}

// Target enumerates every addressable element of a fill context.
type Target interface {
	Elements() []Element
}

// Elements adapts a plain slice to Target.
type Elements []Element

func (e Elements) Elements() []Element { return e }

// Events raised after assignment.
const (
	EventInput  = "input"
	EventChange = "change"
)

var textExcludedTypes = map[string]bool{
	"hidden":   true,
	"checkbox": true,
	"radio":    true,
	"submit":   true,
	"button":   true,
	"reset":    true,
	"image":    true,
	"file":     true,
}

func isTextInput(e Element) bool {
	switch e.Tag() {
	case "input":
		return !textExcludedTypes[e.InputType()]
	case "textarea":
		return true
	}
	return false
}

func attrs(e Element, names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if v, ok := e.Attr(n); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

// HasFormControls reports whether elems contain a form, an input, a select,
// a textarea or a contenteditable element.
func HasFormControls(elems []Element) bool {
	for _, e := range elems {
		switch e.Tag() {
		case "form", "input", "select", "textarea":
			return true
		}
		if e.IsContentEditable() {
			return true
		}
	}
	return false
}
