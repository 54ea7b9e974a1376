package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors. Callers match with errors.Is.
var (
	// ErrBadRequest marks a request the handler could not parse or validate.
	ErrBadRequest = errors.New("bad request")

	// ErrBackpressure marks a capture event the queue refused.
	ErrBackpressure = errors.New("backpressure")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel and keeps the cause on the chain.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Wrap adds operation context to an unexpected error.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
