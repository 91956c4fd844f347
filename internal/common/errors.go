// Package common defines sentinel errors shared by the pbx components.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Target errors.
	ErrInvalidTarget = errors.New("exactly one of inbox id or router id must be set")

	// Document errors.
	ErrMissingFile    = errors.New("document not found")
	ErrInvalidPattern = errors.New("invalid path pattern")

	// Credential errors (key file unreadable, malformed, or signing failed).
	ErrCredential = errors.New("credential error")

	// Dispatch errors.
	ErrTransient    = errors.New("transient http error")
	ErrNotAttempted = errors.New("not attempted")
)
