package engagement

import "errors"

// Package errors.
var (
	// ErrUnknownLearner marks a seed or clear call naming a learner that
	// is not in the collection.
	ErrUnknownLearner = errors.New("unknown learner")
)
