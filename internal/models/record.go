package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrInvalidRecord = errors.New("profile record must be an object or a string")

// Record is a stored profile: either a plain FieldSet (a JSON object) or an
// opaque ciphertext (a JSON string). Exactly one of Plain and Cipher is set.
type Record struct {
	Plain  *FieldSet
	Cipher string
}

// PlainRecord wraps fields as an unencrypted record.
func PlainRecord(fs FieldSet) Record {
	return Record{Plain: &fs}
}

// CipherRecord wraps an opaque ciphertext.
func CipherRecord(s string) Record {
	return Record{Cipher: s}
}

// Encrypted reports whether the record holds ciphertext.
func (r Record) Encrypted() bool {
	return r.Plain == nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Plain != nil {
		return json.Marshal(r.Plain)
	}
	return json.Marshal(r.Cipher)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrInvalidRecord
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Record{Cipher: s}
		return nil
	case '{':
		var fs FieldSet
		if err := json.Unmarshal(b, &fs); err != nil {
			return err
		}
		*r = Record{Plain: &fs}
		return nil
	default:
		return ErrInvalidRecord
	}
}

// Mapping is the persisted set of profiles keyed by name.
type Mapping map[string]Record
