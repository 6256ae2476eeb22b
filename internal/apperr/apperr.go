// Package apperr defines the error kinds shared across the service.
// Concrete errors wrap exactly one kind so callers can branch with errors.Is.
package apperr

import "errors"

var (
	ErrValidation     = errors.New("validation error")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
	ErrConfiguration  = errors.New("configuration error")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with the given message that matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Kind reports which of the known kinds err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrDuplicateKey, ErrNotFound, ErrAuthentication, ErrConfiguration} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
