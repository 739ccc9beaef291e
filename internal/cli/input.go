package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dmitrijs2005/autofill/internal/models"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetPassphrase prints prompt to w and reads a passphrase without echo.
func GetPassphrase(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}

var fieldLabels = map[models.Field]string{
	models.FirstName:  "First name",
	models.MiddleName: "Middle name",
	models.LastName:   "Last name",
	models.Age:        "Age",
	models.DOB:        "Date of birth",
	models.Email:      "Email",
	models.Phone:      "Phone",
	models.City:       "City",
	models.State:      "State",
	models.Country:    "Country",
	models.CGPA:       "CGPA",
	models.Gender:     "Gender",
	models.Custom:     "Custom",
}

// promptProfile is a test seam for the interactive profile editor. It edits
// name and fields in place.
var promptProfile = func(name *string, fs *models.FieldSet) error {
	values := make(map[models.Field]*string, len(models.Fields))
	inputs := []huh.Field{
		huh.NewInput().Title("Profile name").Value(name),
	}
	for _, f := range models.Fields {
		v := fs.Get(f)
		values[f] = &v
		if f == models.Gender {
			continue
		}
		inputs = append(inputs, huh.NewInput().Title(fieldLabels[f]).Value(values[f]))
	}
	gender := huh.NewSelect[string]().
		Title(fieldLabels[models.Gender]).
		Options(
			huh.NewOption("(none)", ""),
			huh.NewOption("Male", "male"),
			huh.NewOption("Female", "female"),
			huh.NewOption("Other", "other"),
		).
		Value(values[models.Gender])

	err := huh.NewForm(
		huh.NewGroup(inputs...),
		huh.NewGroup(gender),
	).Run()
	if err != nil {
		return err
	}

	for f, v := range values {
		fs.Set(f, *v)
	}
	return nil
}

// ParseAssignments reads key=value pairs naming profile fields.
func ParseAssignments(args []string) (models.FieldSet, error) {
	var fs models.FieldSet
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return fs, fmt.Errorf("expected field=value, got %q", a)
		}
		f, ok := models.ParseField(strings.TrimSpace(k))
		if !ok {
			return fs, fmt.Errorf("unknown field %q", k)
		}
		fs.Set(f, v)
	}
	return fs, nil
}

// FormatFields lists the non-empty fields in canonical order.
func FormatFields(fs models.FieldSet) []string {
	var out []string
	for _, f := range fs.Filled() {
		out = append(out, fmt.Sprintf("%s: %s", f, fs.Get(f)))
	}
	return out
}
