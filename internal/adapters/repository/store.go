// Package repository defines the learner roster store interface and errors.
package repository

import (
	"context"

	"github.com/seluk/margo/internal/domain/model"
)

// Store provides read/write access to the learner roster. Records are
// keyed by learner name and always copied across the boundary, so holders
// of a returned record can never alias store state.
type Store interface {
	// Seed inserts or replaces a learner record.
	// Returns ErrEmptyName when the record carries no name.
	Seed(ctx context.Context, rec model.LearnerRecord) error

	// Get returns the record for a learner name.
	// Returns ErrNotFound if the learner is unknown.
	Get(ctx context.Context, name string) (model.LearnerRecord, error)

	// List returns every record ordered by learner name.
	List(ctx context.Context) []model.LearnerRecord

	// ReplaceAll swaps the whole roster for the given collection, used
	// after scoring and reconciliation runs that build new collections.
	ReplaceAll(ctx context.Context, learners []model.LearnerRecord) error

	// Count returns the number of learners tracked.
	Count(ctx context.Context) int
}
