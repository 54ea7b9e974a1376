package config

import (
	"errors"
)

// Sentinel errors for loading and validation. Callers match with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
