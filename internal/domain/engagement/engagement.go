// Package engagement reconciles per-learner disengagement flags from the
// two detection switches, keeping demo flags apart from persisted ones.
package engagement

import (
	"context"
	"fmt"

	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// DemoFlagLabel is the fixed label attached by reconciliation.
const DemoFlagLabel = "possible skimming"

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger overrides the controller logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller owns demo flags. Persisted flags pass through it untouched
// except via the explicit seed and clear calls.
type Controller struct {
	thresholds model.SkimThresholds
	log        logger.Logger
}

// NewController creates a controller, rejecting malformed thresholds at
// the boundary.
func NewController(thresholds model.SkimThresholds, opts ...Option) (*Controller, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		thresholds: thresholds,
		log:        logger.Get().Named("engagement"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Reconcile applies the flag rule to the learner set and returns a new
// collection; the input is never mutated. With both switches on and no
// flag anywhere, exactly one exemplar gains a demo flag. With either
// switch off, every demo flag is removed. Persisted flags survive both
// directions, and re-running with unchanged inputs changes nothing.
func (c *Controller) Reconcile(ctx context.Context, learners []model.LearnerRecord, switches model.DetectionSwitches) []model.LearnerRecord {
	out := make([]model.LearnerRecord, 0, len(learners))
	for _, rec := range learners {
		out = append(out, rec.Clone())
	}

	if switches.Active() {
		if !anyFlag(out) {
			if i := c.exemplar(out); i >= 0 {
				out[i].Flag = &model.FlagState{Label: DemoFlagLabel, Origin: model.OriginDemo}
				c.log.Info(ctx, "seeded demo flag", logger.String("learner", out[i].Name))
			}
		}
	} else {
		for i := range out {
			if out[i].Flag != nil && out[i].Flag.Origin == model.OriginDemo {
				out[i].Flag = nil
				c.log.Info(ctx, "removed demo flag", logger.String("learner", out[i].Name))
			}
		}
	}

	metrics.RecordReconcileRun()
	demo, persisted := CountFlags(out)
	metrics.UpdateFlagCounts(demo, persisted)
	return out
}

// SeedPersisted attaches a persisted flag to the named learner, replacing
// whatever flag it carried, and returns a new collection.
func (c *Controller) SeedPersisted(ctx context.Context, learners []model.LearnerRecord, name, label string) ([]model.LearnerRecord, error) {
	out, i := cloneWithIndex(learners, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLearner, name)
	}

	out[i].Flag = &model.FlagState{Label: label, Origin: model.OriginPersisted}
	c.log.Info(ctx, "seeded persisted flag",
		logger.String("learner", name),
		logger.String("label", label),
	)

	demo, persisted := CountFlags(out)
	metrics.UpdateFlagCounts(demo, persisted)
	return out, nil
}

// ClearPersisted removes the named learner's flag if it is persisted and
// returns a new collection. A demo flag stays; it belongs to Reconcile.
func (c *Controller) ClearPersisted(ctx context.Context, learners []model.LearnerRecord, name string) ([]model.LearnerRecord, error) {
	out, i := cloneWithIndex(learners, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLearner, name)
	}

	if out[i].Flag != nil && out[i].Flag.Origin == model.OriginPersisted {
		out[i].Flag = nil
		c.log.Info(ctx, "cleared persisted flag", logger.String("learner", name))
	}

	demo, persisted := CountFlags(out)
	metrics.UpdateFlagCounts(demo, persisted)
	return out, nil
}

// CountFlags tallies flags by origin.
func CountFlags(learners []model.LearnerRecord) (demo, persisted int) {
	for _, rec := range learners {
		if rec.Flag == nil {
			continue
		}
		switch rec.Flag.Origin {
		case model.OriginDemo:
			demo++
		case model.OriginPersisted:
			persisted++
		}
	}
	return demo, persisted
}

// exemplar picks the learner to flag: suspects fall under the grace
// dwell cut or the interaction minimum; the lowest dwell-per-interaction
// ratio wins, ties broken by name. With no suspects every learner is a
// candidate, so a non-empty set always yields an exemplar.
func (c *Controller) exemplar(learners []model.LearnerRecord) int {
	if len(learners) == 0 {
		return -1
	}

	graceCut := int64(float64(c.thresholds.MinDwellMs) * c.thresholds.GraceRatio)
	candidates := make([]int, 0, len(learners))
	for i, rec := range learners {
		if rec.DwellMs < graceCut || rec.Interactions < c.thresholds.MinInteractions {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i := range learners {
			candidates = append(candidates, i)
		}
	}

	best := -1
	var bestRatio float64
	for _, i := range candidates {
		interactions := learners[i].Interactions
		if interactions < 1 {
			interactions = 1
		}
		ratio := float64(learners[i].DwellMs) / float64(interactions)
		if best < 0 || ratio < bestRatio ||
			(ratio == bestRatio && learners[i].Name < learners[best].Name) {
			best = i
			bestRatio = ratio
		}
	}
	return best
}

func anyFlag(learners []model.LearnerRecord) bool {
	for _, rec := range learners {
		if rec.Flag != nil {
			return true
		}
	}
	return false
}

func cloneWithIndex(learners []model.LearnerRecord, name string) ([]model.LearnerRecord, int) {
	out := make([]model.LearnerRecord, 0, len(learners))
	found := -1
	for i, rec := range learners {
		out = append(out, rec.Clone())
		if rec.Name == name {
			found = i
		}
	}
	return out, found
}
