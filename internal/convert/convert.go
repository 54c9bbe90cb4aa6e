// Package convert provides the document converter boundary: turning raw
// document bytes into page-ordered structured text for extraction.
package convert

import (
	"context"
	"fmt"

	"github.com/mateo/contract-intake/internal/types"
)

// ErrorKind classifies conversion failures.
type ErrorKind string

const (
	KindCorruptFile       ErrorKind = "CorruptFile"
	KindUnsupportedFormat ErrorKind = "UnsupportedFormat"
	KindPageLimitExceeded ErrorKind = "PageLimitExceeded"
)

// Error represents a document conversion failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conversion error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("conversion error (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Converter turns a raw document into structured text. Implementations must
// be safe for concurrent use; conversion has no side effects.
type Converter interface {
	Convert(ctx context.Context, doc types.RawDocument) (*types.StructuredText, error)
}
