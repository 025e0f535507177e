package world

import (
	"errors"
	"fmt"
)

// LookupError reports a read of a record id that does not exist.
// Read paths translate it into an absent result; it is never fatal.
type LookupError struct {
	Kind string
	ID   string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsLookupError returns true if err is or wraps a LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

func notFound(kind, id string) error {
	return &LookupError{Kind: kind, ID: id}
}
