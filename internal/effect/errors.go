package effect

import (
	"errors"
	"fmt"
)

// HandlerErrorCode categorizes handler failures.
type HandlerErrorCode string

const (
	// ErrCodeUnknownKind indicates no handler is registered for the kind.
	ErrCodeUnknownKind HandlerErrorCode = "UNKNOWN_KIND"
	// ErrCodeUnknownTarget indicates a referenced id does not exist.
	ErrCodeUnknownTarget HandlerErrorCode = "UNKNOWN_TARGET"
	// ErrCodeOutOfDomain indicates a value outside its allowed domain.
	ErrCodeOutOfDomain HandlerErrorCode = "OUT_OF_DOMAIN"
	// ErrCodeIllegalTransition indicates a change the world rules forbid,
	// such as moving to a non-adjacent or blocked zone.
	ErrCodeIllegalTransition HandlerErrorCode = "ILLEGAL_TRANSITION"
	// ErrCodeInvalidAtom indicates a malformed atom (missing fields).
	ErrCodeInvalidAtom HandlerErrorCode = "INVALID_ATOM"
)

// HandlerError reports that an effect atom could not be applied. In a
// transactional batch it aborts the whole batch.
type HandlerError struct {
	Code    HandlerErrorCode `json:"code"`
	Kind    Kind             `json:"kind"`
	Target  string           `json:"target,omitempty"`
	Index   int              `json:"index"`
	Message string           `json:"message"`
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s effect on %q: %s", e.Code, e.Kind, e.Target, e.Message)
	}
	return fmt.Sprintf("%s: %s effect: %s", e.Code, e.Kind, e.Message)
}

// AsHandlerError extracts a HandlerError from err.
func AsHandlerError(err error) (*HandlerError, bool) {
	var he *HandlerError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsHandlerError returns true if err is or wraps a HandlerError.
func IsHandlerError(err error) bool {
	_, ok := AsHandlerError(err)
	return ok
}

// HasCode returns true if err is a HandlerError with the given code.
func HasCode(err error, code HandlerErrorCode) bool {
	he, ok := AsHandlerError(err)
	return ok && he.Code == code
}

func fail(code HandlerErrorCode, a Atom, format string, args ...any) error {
	return &HandlerError{
		Code:    code,
		Kind:    a.Kind,
		Target:  a.Target,
		Message: fmt.Sprintf(format, args...),
	}
}

func unknownTarget(a Atom, what, id string) error {
	return fail(ErrCodeUnknownTarget, a, "%s %q does not exist", what, id)
}

func invalid(a Atom, field string) error {
	return fail(ErrCodeInvalidAtom, a, "%s is required", field)
}
