// Package repository defines the learner roster store interface and errors.
package repository

import (
	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSeedLearners preloads the roster. Records without a name are
// skipped; later duplicates win, matching Seed semantics.
func WithSeedLearners(learners []model.LearnerRecord) Option {
	return func(s *MemoryStore) {
		for _, rec := range learners {
			if rec.Name == "" {
				continue
			}
			s.learners[rec.Name] = rec.Clone()
		}
	}
}

// WithLogger overrides the store logger.
func WithLogger(log logger.Logger) Option {
	return func(s *MemoryStore) {
		if log != nil {
			s.log = log
		}
	}
}
