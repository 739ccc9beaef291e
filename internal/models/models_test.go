package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSet_GetSet(t *testing.T) {
	var fs FieldSet
	for _, f := range Fields {
		fs.Set(f, string(f)+"-value")
	}
	for _, f := range Fields {
		assert.Equal(t, string(f)+"-value", fs.Get(f))
	}

	fs.Set(Field("nickname"), "x")
	assert.Equal(t, "", fs.Get(Field("nickname")))
}

func TestFieldSet_IsEmptyAndFilled(t *testing.T) {
	var fs FieldSet
	assert.True(t, fs.IsEmpty())
	assert.Nil(t, fs.Filled())

	fs.Email = "a@b.c"
	fs.FirstName = "Ada"
	assert.False(t, fs.IsEmpty())
	assert.Equal(t, []Field{FirstName, Email}, fs.Filled())
}

func TestFieldSet_JSONKeys(t *testing.T) {
	b, err := json.Marshal(FieldSet{FirstName: "Ada", CGPA: "3.9", DOB: "1815-12-10"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstName":"Ada","cgpa":"3.9","dob":"1815-12-10"}`, string(b))
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("lastName")
	assert.True(t, ok)
	assert.Equal(t, LastName, f)

	_, ok = ParseField("last_name")
	assert.False(t, ok)
}

func TestMapping_JSONShapes(t *testing.T) {
	in := `{"home":{"firstName":"Ada","email":"ada@example.com"},"work":"U2FsdGVkX1+abc"}`

	var m Mapping
	require.NoError(t, json.Unmarshal([]byte(in), &m))

	want := Mapping{
		"home": PlainRecord(FieldSet{FirstName: "Ada", Email: "ada@example.com"}),
		"work": CipherRecord("U2FsdGVkX1+abc"),
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, m["home"].Encrypted())
	assert.True(t, m["work"].Encrypted())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestRecord_RejectsOtherShapes(t *testing.T) {
	for _, in := range []string{`42`, `[1]`, `null`, `true`} {
		var r Record
		assert.ErrorIs(t, json.Unmarshal([]byte(in), &r), ErrInvalidRecord, in)
	}
}
