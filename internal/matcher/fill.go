package matcher

import (
	"strings"

	"github.com/dmitrijs2005/autofill/internal/models"
)

// Result reports what a fill pass changed.
type Result struct {
	// Filled counts element assignments, one per element and field.
	Filled int
	// Fields lists the fields that filled at least one control, in table order.
	Fields []models.Field
}

// Any reports whether at least one control was filled.
func (r Result) Any() bool { return r.Filled > 0 }

// Merge folds o into r.
func (r Result) Merge(o Result) Result {
	out := Result{Filled: r.Filled + o.Filled}
	seen := map[models.Field]bool{}
	for _, f := range append(append([]models.Field{}, r.Fields...), o.Fields...) {
		if !seen[f] {
			seen[f] = true
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// Fill uses DefaultTable.
func Fill(t Target, fs models.FieldSet) Result {
	return DefaultTable.Fill(t, fs)
}

// Fill assigns every non-empty field of fs to the matching controls of t.
func (tb Table) Fill(t Target, fs models.FieldSet) Result {
	elems := t.Elements()
	var res Result
	for _, e := range tb {
		v := fs.Get(e.Field)
		if v == "" || len(e.Patterns) == 0 {
			continue
		}
		n := e.fill(elems, v)
		if n > 0 {
			res.Filled += n
			res.Fields = append(res.Fields, e.Field)
		}
	}
	return res
}

func (e Entry) fill(elems []Element, v string) int {
	n := 0
	for _, el := range elems {
		switch {
		case e.Controls&ControlText != 0 && isTextInput(el):
			if e.matchAny(attrs(el, "name", "id", "placeholder", "aria-label")) {
				el.SetValue(v)
				el.Dispatch(EventInput)
				el.Dispatch(EventChange)
				n++
			}
		case e.Controls&ControlText != 0 && el.Tag() != "input" && el.IsContentEditable():
			if e.matchAny(attrs(el, "aria-label")) {
				el.SetText(v)
				el.Dispatch(EventInput)
				el.Dispatch(EventChange)
				n++
			}
		case e.Controls&ControlSelect != 0 && el.Tag() == "select":
			if e.matchAny(attrs(el, "name", "id")) && selectOption(el, v) {
				el.Dispatch(EventChange)
				n++
			}
		case e.Controls&ControlRadio != 0 && el.Tag() == "input" && el.InputType() == "radio":
			if e.matchAny(attrs(el, "name", "id")) && strings.EqualFold(el.Value(), v) {
				el.SetChecked(true)
				el.Dispatch(EventChange)
				n++
			}
		case e.Controls&ControlCheckbox != 0 && el.Tag() == "input" && el.InputType() == "checkbox":
			if e.matchAny(attrs(el, "name", "id")) {
				el.SetChecked(true)
				el.Dispatch(EventChange)
				n++
			}
		}
	}
	return n
}

func selectOption(el Element, v string) bool {
	for _, o := range el.Options() {
		if strings.EqualFold(o.Value, v) || strings.EqualFold(strings.TrimSpace(o.Label), v) {
			el.SetValue(o.Value)
			return true
		}
	}
	return false
}
