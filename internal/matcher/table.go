package matcher

import (
	"regexp"
	"strings"

	"github.com/dmitrijs2005/autofill/internal/models"
)

// Pattern matches attribute text case-insensitively, either as a regular
// expression or as a literal substring.
type Pattern struct {
	re  *regexp.Regexp
	lit string
}

func Regex(expr string) Pattern {
	return Pattern{re: regexp.MustCompile("(?i)" + expr)}
}

func Literal(s string) Pattern {
	return Pattern{lit: strings.ToLower(s)}
}

func (p Pattern) Match(s string) bool {
	if p.re != nil {
		return p.re.MatchString(s)
	}
	return p.lit != "" && strings.Contains(strings.ToLower(s), p.lit)
}

func (p Pattern) String() string {
	if p.re != nil {
		return strings.TrimPrefix(p.re.String(), "(?i)")
	}
	return p.lit
}

// Control is a bit set of control kinds a field may fill.
type Control uint8

const (
	ControlText Control = 1 << iota
	ControlSelect
	ControlRadio
	ControlCheckbox
)

// Entry binds a semantic field to its patterns and allowed control kinds.
type Entry struct {
	Field    models.Field
	Patterns []Pattern
	Controls Control
}

// Table is an ordered list of entries. Order matters for Classify.
type Table []Entry

// DefaultTable is the built-in field table. Custom has no patterns and is
// never filled or recorded.
var DefaultTable = Table{
	{Field: models.FirstName, Controls: ControlText, Patterns: []Pattern{
		Regex(`first\s*name`), Regex(`fname`), Regex(`given\s*name`), Regex(`user.*first`), Literal("first"),
	}},
	{Field: models.MiddleName, Controls: ControlText, Patterns: []Pattern{
		Regex(`middle\s*name`), Regex(`mname`), Regex(`middle`), Regex(`user.*middle`),
	}},
	{Field: models.LastName, Controls: ControlText, Patterns: []Pattern{
		Regex(`last\s*name`), Regex(`lname`), Regex(`surname`), Regex(`user.*last`), Literal("last"),
	}},
	{Field: models.Age, Controls: ControlText, Patterns: []Pattern{
		Regex(`age`), Regex(`years`), Regex(`user.*age`), Literal("age_field"),
	}},
	{Field: models.DOB, Controls: ControlText, Patterns: []Pattern{
		Regex(`dob`), Regex(`birthdate`), Regex(`date\s*of\s*birth`), Regex(`birth_date`), Regex(`user.*birthdate`), Literal("birthday"),
	}},
	{Field: models.Email, Controls: ControlText, Patterns: []Pattern{
		Regex(`email`), Regex(`mail`), Regex(`user.*email`), Regex(`email.*address`),
	}},
	{Field: models.Phone, Controls: ControlText, Patterns: []Pattern{
		Regex(`phone`), Regex(`telephone`), Regex(`tel`), Regex(`phone.*number`), Regex(`user.*phone`),
	}},
	{Field: models.City, Controls: ControlText, Patterns: []Pattern{
		Regex(`city`), Regex(`user.*city`), Regex(`address.*city`),
	}},
	{Field: models.State, Controls: ControlText, Patterns: []Pattern{
		Regex(`state`), Regex(`user.*state`), Regex(`address.*state`),
	}},
	{Field: models.Country, Controls: ControlText, Patterns: []Pattern{
		Regex(`country`), Regex(`user.*country`), Regex(`address.*country`),
	}},
	{Field: models.CGPA, Controls: ControlText, Patterns: []Pattern{
		Regex(`cgpa`), Regex(`gpa`), Regex(`grade.*point`), Regex(`user.*cgpa`),
	}},
	{Field: models.Gender, Controls: ControlText | ControlSelect | ControlRadio, Patterns: []Pattern{
		Regex(`gender`), Regex(`sex`), Regex(`user.*gender`),
	}},
	{Field: models.Custom, Controls: ControlText},
}

func (e Entry) matchAny(values []string) bool {
	for _, p := range e.Patterns {
		for _, v := range values {
			if p.Match(v) {
				return true
			}
		}
	}
	return false
}

// Classify returns the first field, in table order, with a pattern matching
// a control name.
func (t Table) Classify(name string) (models.Field, bool) {
	if name == "" {
		return "", false
	}
	for _, e := range t {
		if e.matchAny([]string{name}) {
			return e.Field, true
		}
	}
	return "", false
}

// Classify uses DefaultTable.
func Classify(name string) (models.Field, bool) {
	return DefaultTable.Classify(name)
}
