// Package rubric combines tier baselines and the lexical proxies into a
// bounded composite score with tiered feedback, in two interchangeable
// policy variants.
package rubric

import (
	"context"
	"math"
	"time"

	"github.com/seluk/margo/internal/domain/lexical"
	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// Composite weights and feedback cuts. The four weights sum to 1; the cuts
// partition [0,1] into three non-overlapping feedback tiers.
const (
	weightCompleteness = 0.25
	weightRelevance    = 0.30
	weightEvidence     = 0.25
	weightFluency      = 0.20

	feedbackHighCut = 0.85
	feedbackLowCut  = 0.65

	scoreScale = 100
)

// Completeness baselines by tier.
const (
	completenessStrong = 0.8
	completenessMedium = 0.6
	completenessWeak   = 0.4
)

// Feedback strings, fixed per tier.
const (
	feedbackHigh = "Excellent answer. To make it even stronger, cite one concrete detail from the passage."
	feedbackMid  = "Mostly correct. Reread the relevant paragraph and tie your answer more directly to it."
	feedbackLow  = "This answer is off-target. Go back to the passage, find the sentence that addresses the question, and try again."
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger overrides the engine logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine scores learner answers against one document. It is a pure
// function of its inputs: scoring unchanged inputs twice yields
// bit-identical assessments.
type Engine struct {
	document string
	log      logger.Logger
}

// NewEngine creates an engine bound to the document text.
func NewEngine(document string, opts ...Option) *Engine {
	e := &Engine{
		document: document,
		log:      logger.Get().Named("rubric"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assess scores a single learner under the given policy.
func (e *Engine) Assess(p Policy, rec model.LearnerRecord) model.Assessment {
	completeness := completenessBaseline(rec.Tier)
	relevance := lexical.Jaccard(e.document, rec.Answer)
	evidence := p.EvidenceScore(rec.Tier)
	fluent := lexical.Fluency(rec.Answer)
	adjust := p.LevelAdjust(rec.Tier)

	total := weightCompleteness*completeness +
		weightRelevance*relevance +
		weightEvidence*evidence +
		weightFluency*fluent +
		adjust
	if rec.Flag != nil {
		total -= p.FlagPenalty()
	}
	total = clamp(total)

	return model.Assessment{
		Breakdown: model.RubricBreakdown{
			Completeness:  completeness,
			Relevance:     relevance,
			EvidenceScore: evidence,
			Fluency:       fluent,
			LevelAdjust:   adjust,
			Total:         total,
		},
		Score:    int(math.Round(total * scoreScale)),
		Feedback: feedbackFor(total),
	}
}

// AssessAll scores every learner under the policy and returns a new
// collection in input order with Assessment populated. Input records are
// never mutated.
func (e *Engine) AssessAll(ctx context.Context, p Policy, learners []model.LearnerRecord) []model.LearnerRecord {
	start := time.Now()

	out := make([]model.LearnerRecord, 0, len(learners))
	for _, rec := range learners {
		scored := rec.Clone()
		assessment := e.Assess(p, rec)
		scored.Assessment = &assessment
		out = append(out, scored)
	}

	metrics.RecordScoringRun(p.Name())
	metrics.RecordScoredLearners(len(out))
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	e.log.Debug(ctx, "scored learners",
		logger.String("policy", p.Name()),
		logger.Int("learners", len(out)),
	)

	return out
}

func completenessBaseline(tier model.QualityTier) float64 {
	switch tier {
	case model.TierStrong:
		return completenessStrong
	case model.TierMedium:
		return completenessMedium
	default:
		return completenessWeak
	}
}

func feedbackFor(total float64) string {
	switch {
	case total > feedbackHighCut:
		return feedbackHigh
	case total > feedbackLowCut:
		return feedbackMid
	default:
		return feedbackLow
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
