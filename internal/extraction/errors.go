// Package extraction converts structured document text into a typed
// ContractRecord via per-field matchers. It performs no I/O and is safe to
// retry.
package extraction

import "fmt"

// ErrorKind classifies extraction failures.
type ErrorKind string

const (
	KindMissingRequiredField ErrorKind = "MissingRequiredField"
	KindAmbiguousMatch       ErrorKind = "AmbiguousMatch"
	KindUnsupportedLayout    ErrorKind = "UnsupportedLayout"
)

// Error represents a field extraction failure.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extraction error (%s) for field %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("extraction error (%s): %s", e.Kind, e.Message)
}
