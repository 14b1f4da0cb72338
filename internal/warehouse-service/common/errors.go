// Package common holds the error kinds shared by the warehouse service layers.
// Packages declare their own sentinel errors wrapping one of these kinds, and
// the HTTP layer picks a status code by kind.
package common

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("authentication failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrExternalService  = errors.New("external service error")
)

// Validationf builds an ErrValidation with a client facing message.
func Validationf(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Kind wraps kind with a message that is shown to the client as is.
func Kind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
