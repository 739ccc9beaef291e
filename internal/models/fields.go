// Package models defines the profile data stored by the extension.
package models

// Field names a semantic form field. The value doubles as the JSON key of
// the field in a FieldSet.
type Field string

const (
	FirstName  Field = "firstName"
	MiddleName Field = "middleName"
	LastName   Field = "lastName"
	Age        Field = "age"
	DOB        Field = "dob"
	Email      Field = "email"
	Phone      Field = "phone"
	City       Field = "city"
	State      Field = "state"
	Country    Field = "country"
	CGPA       Field = "cgpa"
	Gender     Field = "gender"
	Custom     Field = "custom"
)

// Fields lists every semantic field in table order.
var Fields = []Field{
	FirstName, MiddleName, LastName, Age, DOB, Email, Phone,
	City, State, Country, CGPA, Gender, Custom,
}

// ParseField maps a JSON key back to its Field.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// FieldSet holds the values of one profile. Every field is optional; an
// empty string and an absent key mean the same thing.
type FieldSet struct {
	FirstName  string `json:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Age        string `json:"age,omitempty"`
	DOB        string `json:"dob,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	CGPA       string `json:"cgpa,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Custom     string `json:"custom,omitempty"`
}

func (fs *FieldSet) ptr(f Field) *string {
	switch f {
	case FirstName:
		return &fs.FirstName
	case MiddleName:
		return &fs.MiddleName
	case LastName:
		return &fs.LastName
	case Age:
		return &fs.Age
	case DOB:
		return &fs.DOB
	case Email:
		return &fs.Email
	case Phone:
		return &fs.Phone
	case City:
		return &fs.City
	case State:
		return &fs.State
	case Country:
		return &fs.Country
	case CGPA:
		return &fs.CGPA
	case Gender:
		return &fs.Gender
	case Custom:
		return &fs.Custom
	}
	return nil
}

// Get returns the value of f, or "" for unknown fields.
func (fs *FieldSet) Get(f Field) string {
	if p := fs.ptr(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns v to f. Unknown fields are ignored.
func (fs *FieldSet) Set(f Field, v string) {
	if p := fs.ptr(f); p != nil {
		*p = v
	}
}

// IsEmpty reports whether no field has a non-empty value.
func (fs *FieldSet) IsEmpty() bool {
	for _, f := range Fields {
		if fs.Get(f) != "" {
			return false
		}
	}
	return true
}

// Filled returns the fields with a value, in table order.
func (fs *FieldSet) Filled() []Field {
	var out []Field
	for _, f := range Fields {
		if fs.Get(f) != "" {
			out = append(out, f)
		}
	}
	return out
}
