package model

import "github.com/pkg/errors"

// Builder and validation errors. Callers match them with errors.Is.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("referenced id not found")
	ErrInvalidState    = errors.New("invalid model state")
	ErrDecodeMismatch  = errors.New("decoded value differs from model")
)

// errorf annotates a sentinel error with context.
func errorf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
