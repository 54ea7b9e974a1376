package service

import "errors"

// ErrUnknownPolicy marks a scoring request naming a policy the rubric
// engine does not implement. Callers match with errors.Is.
var ErrUnknownPolicy = errors.New("unknown scoring policy")
