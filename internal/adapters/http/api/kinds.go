package api

import "fmt"

// NewKind tags a sentinel error with the originating operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel error with the operation and the cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Wrap tags an error with the originating operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
