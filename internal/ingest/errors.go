package ingest

import (
	"errors"
)

// Sentinel errors for document loading. Callers match with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoText            = errors.New("no extractable text")
)
