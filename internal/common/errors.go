// Package common defines shared constants and sentinel errors used across
// Opacity components. Callers should use errors.Is to match the kinds.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Request-level error kinds, each mapped to one HTTP status at the boundary.
	ErrorValidation      = errors.New("validation error")
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrorForbidden       = errors.New("forbidden")
	ErrorConflict        = errors.New("conflict")
	ErrorNotModified     = errors.New("not modified")

	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

// DetailedError carries a human-readable message on top of one of the
// sentinel kinds above.
type DetailedError struct {
	Kind error
	Msg  string
}

func (e *DetailedError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *DetailedError) Unwrap() error { return e.Kind }

// Errorf builds a DetailedError of the given kind.
//
//	return common.Errorf(common.ErrorValidation, "Missing %s.", domain)
func Errorf(kind error, format string, args ...any) error {
	return &DetailedError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Message returns the client-facing message of err: the DetailedError text
// when one is in the chain, the empty string otherwise.
func Message(err error) string {
	var de *DetailedError
	if errors.As(err, &de) {
		return de.Msg
	}
	return ""
}
