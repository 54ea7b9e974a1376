package repository

import "errors"

// Sentinel kinds for roster errors.
var (
	ErrNotFound      = errors.New("learner not found")
	ErrEmptyName     = errors.New("learner name is empty")
	ErrDuplicateName = errors.New("duplicate learner name")
)
