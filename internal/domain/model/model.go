// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// TaskKind classifies the tasks a reading session presents.
type TaskKind string

// Task kinds.
const (
	TaskEvidenceCapture TaskKind = "evidence_capture"
	TaskShortAnswer     TaskKind = "short_answer"
	TaskDefinition      TaskKind = "definition"
)

// Valid reports whether the kind is one of the known task kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskEvidenceCapture, TaskShortAnswer, TaskDefinition:
		return true
	default:
		return false
	}
}

// QualityTier is the coarse external classification of a learner's work.
type QualityTier string

// Quality tiers.
const (
	TierStrong QualityTier = "strong"
	TierMedium QualityTier = "medium"
	TierWeak   QualityTier = "weak"
)

// Valid reports whether the tier is one of the known tiers.
func (q QualityTier) Valid() bool {
	switch q {
	case TierStrong, TierMedium, TierWeak:
		return true
	default:
		return false
	}
}

// FlagOrigin distinguishes who owns a disengagement flag.
type FlagOrigin string

// Flag origins. Demo flags belong to the reconciliation rule; persisted
// flags belong to explicit external calls.
const (
	OriginDemo      FlagOrigin = "demo"
	OriginPersisted FlagOrigin = "persisted"
)

// Valid reports whether the origin is one of the known origins.
func (o FlagOrigin) Valid() bool {
	return o == OriginDemo || o == OriginPersisted
}

// EvidenceSpan is a captured excerpt of the document with canonical byte
// offsets. Spans are append-only within a session; start < end always holds
// and text equals the document slice taken at capture time.
type EvidenceSpan struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Task is one entry of the fixed per-session task list.
// EvidenceCapture completes when at least one span exists; the answer kinds
// complete when the trimmed answer exceeds the session's length threshold.
type Task struct {
	ID        string   `json:"id"`
	Kind      TaskKind `json:"kind"`
	Prompt    string   `json:"prompt"`
	Completed bool     `json:"completed"`
	Answer    string   `json:"answer,omitempty"`
}

// TaskStatus is the read-model projection of a Task.
type TaskStatus struct {
	ID        string   `json:"id"`
	Kind      TaskKind `json:"kind"`
	Prompt    string   `json:"prompt"`
	Completed bool     `json:"completed"`
}

// Progress aggregates session completion state.
type Progress struct {
	Tasks        []TaskStatus `json:"tasks"`
	Percent      float64      `json:"percent"`
	SpanCount    int          `json:"span_count"`
	DwellMs      int64        `json:"dwell_ms"`
	Interactions int          `json:"interactions"`
}

// FlagState is a disengagement flag carried by a learner record.
type FlagState struct {
	Label  string     `json:"label"`
	Origin FlagOrigin `json:"origin"`
}

// RubricBreakdown holds the sub-scores behind a composite total. All
// sub-scores except level_adjust lie in [0,1]; total is clamped to [0,1].
type RubricBreakdown struct {
	Completeness  float64 `json:"completeness"`
	Relevance     float64 `json:"relevance"`
	EvidenceScore float64 `json:"evidence_score"`
	Fluency       float64 `json:"fluency"`
	LevelAdjust   float64 `json:"level_adjust"`
	Total         float64 `json:"total"`
}

// Assessment is the scoring engine's output for one learner.
type Assessment struct {
	Breakdown RubricBreakdown `json:"breakdown"`
	Score     int             `json:"score"`
	Feedback  string          `json:"feedback"`
}

// LearnerRecord is one learner's seeded data plus engine-owned outputs.
// Name is the identity. Seeded fields (dwell, interactions, tier, answer)
// come from collaborators; Flag and Assessment are overwritten by the
// controller and the scoring engine, and recomputation is idempotent.
type LearnerRecord struct {
	Name         string      `json:"name"`
	DwellMs      int64       `json:"dwell_ms"`
	Interactions int         `json:"interactions"`
	Tier         QualityTier `json:"quality_tier"`
	Answer       string      `json:"answer,omitempty"`
	Flag         *FlagState  `json:"flag,omitempty"`
	Assessment   *Assessment `json:"assessment,omitempty"`
}

// Clone returns a deep copy so callers can build new collections without
// sharing flag or assessment pointers.
func (r LearnerRecord) Clone() LearnerRecord {
	out := r
	if r.Flag != nil {
		f := *r.Flag
		out.Flag = &f
	}
	if r.Assessment != nil {
		a := *r.Assessment
		out.Assessment = &a
	}
	return out
}

// SkimThresholds is the externally configured suspect boundary for the
// skim-flag controller. The core never mutates it.
type SkimThresholds struct {
	MinDwellMs      int64   `json:"min_dwell_ms"`
	MinInteractions int     `json:"min_interactions"`
	GraceRatio      float64 `json:"grace_ratio"`
}

// ErrInvalidThresholds marks a SkimThresholds rejection.
var ErrInvalidThresholds = errors.New("invalid skim thresholds")

// Validate rejects malformed thresholds at the boundary.
func (t SkimThresholds) Validate() error {
	if t.MinDwellMs < 0 {
		return fmt.Errorf("%w: min dwell %d is negative", ErrInvalidThresholds, t.MinDwellMs)
	}
	if t.MinInteractions < 0 {
		return fmt.Errorf("%w: min interactions %d is negative", ErrInvalidThresholds, t.MinInteractions)
	}
	if t.GraceRatio < 0 || t.GraceRatio > 1 {
		return fmt.Errorf("%w: grace ratio %g outside [0,1]", ErrInvalidThresholds, t.GraceRatio)
	}
	return nil
}

// DetectionSwitches are the two booleans driving flag reconciliation.
type DetectionSwitches struct {
	Capability bool `json:"capability"`
	Mode       bool `json:"mode"`
}

// Active reports whether reconciliation may seed a demo flag.
func (s DetectionSwitches) Active() bool {
	return s.Capability && s.Mode
}
