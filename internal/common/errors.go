// Package common defines shared sentinel errors and small helpers used across
// the autofill components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	ErrorNotFound = errors.New("not found")

	// ErrContextInvalidated is returned by every host-facing operation once the
	// extension runtime has been reloaded or disabled.
	ErrContextInvalidated = errors.New("extension context invalidated")

	// ErrorValidation marks input rejected before anything is stored.
	ErrorValidation = errors.New("validation error")
)
