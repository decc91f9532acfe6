package service

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPermissionDenied short-circuits any action whose actor lacks the
// required permission bit. The attempted mutation never reaches storage.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError is a rejected input carrying the offending field, so the
// caller can show a field-level reason next to the originating form.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationError(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
