// Package common defines shared constants and sentinel errors used across
// the server and client layers. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAccessDenied     = errors.New("access denied")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidArgument  = errors.New("invalid argument")

	// Graph errors.
	ErrSelfLoop = errors.New("relationship endpoints must differ")

	// Invitation errors.
	ErrSelfInvite       = errors.New("cannot invite yourself")
	ErrDuplicatePending = errors.New("an invitation is already pending for this email")

	// Batch precondition did not hold at commit time.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// ProviderError is an opaque failure coming from the identity provider or
// the document store. Code is one of the Code* constants when known.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a provider code.
func NewProviderError(code string, err error) error {
	return &ProviderError{Code: code, Err: err}
}

// ProviderCode returns the provider code carried by err, or "".
func ProviderCode(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
