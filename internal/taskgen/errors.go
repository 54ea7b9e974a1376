package taskgen

import (
	"errors"
)

// Sentinel errors for the generation pipeline. Callers match with errors.Is.
var (
	ErrNoContent       = errors.New("no content to generate from")
	ErrEmptyCompletion = errors.New("empty completion response")
)
