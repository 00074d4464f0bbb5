package validators

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	// ErrValidation is the root of every payload validation failure.
	ErrValidation = errors.New("validation failed")

	ErrUnknownRecordType = errors.New("unknown record type")
	ErrMissingField      = errors.New("required field is missing")
	ErrKindMismatch      = errors.New("field kind mismatch")
	ErrInvalidSchema     = errors.New("invalid schema")
)

// ValidationError describes a rejected record. It matches both
// [ErrValidation] and the concrete reason with errors.Is.
type ValidationError struct {
	Type   string
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record type %q: %v", e.Type, e.Reason)
	}
	return fmt.Sprintf("record type %q, field %q: %v", e.Type, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Reason}
}
