package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// MemoryStore implements Store with a name-keyed map. A RWMutex guards it;
// the dispatcher is the only writer during normal operation, but seeding
// and replacement arrive from the HTTP surface too.
type MemoryStore struct {
	mu       sync.RWMutex
	learners map[string]model.LearnerRecord
	log      logger.Logger
}

// NewMemoryStore creates a roster store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		learners: make(map[string]model.LearnerRecord),
		log:      logger.Get().Named("roster"),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateLearnersTotal(len(s.learners))
	return s
}

// Seed inserts or replaces a learner record.
func (s *MemoryStore) Seed(ctx context.Context, rec model.LearnerRecord) error {
	if rec.Name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.learners[rec.Name] = rec.Clone()
	metrics.UpdateLearnersTotal(len(s.learners))
	s.log.Debug(ctx, "seeded learner", logger.String("name", rec.Name))
	return nil
}

// Get returns a copy of the record for a learner name.
func (s *MemoryStore) Get(ctx context.Context, name string) (model.LearnerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.learners[name]
	if !ok {
		return model.LearnerRecord{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return rec.Clone(), nil
}

// List returns every record ordered by learner name.
func (s *MemoryStore) List(ctx context.Context) []model.LearnerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LearnerRecord, 0, len(s.learners))
	for _, rec := range s.learners {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReplaceAll swaps the whole roster for the given collection.
func (s *MemoryStore) ReplaceAll(ctx context.Context, learners []model.LearnerRecord) error {
	next := make(map[string]model.LearnerRecord, len(learners))
	for _, rec := range learners {
		if rec.Name == "" {
			return ErrEmptyName
		}
		if _, dup := next[rec.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, rec.Name)
		}
		next[rec.Name] = rec.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.learners = next
	metrics.UpdateLearnersTotal(len(s.learners))
	s.log.Debug(ctx, "replaced roster", logger.Int("learners", len(s.learners)))
	return nil
}

// Count returns the number of learners tracked.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.learners)
}
