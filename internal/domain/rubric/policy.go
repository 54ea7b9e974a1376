package rubric

import "github.com/seluk/margo/internal/domain/model"

// Policy-specific constants. Both policies share the evidence proxy; they
// differ in level adjustment and flag penalty.
const (
	evidenceAttached = 0.7
	evidenceMissing  = 0.3

	ruleBasedFlagPenalty = 0.1

	assistWeakLift   = 0.05
	assistStrongTrim = -0.02
)

// Policy derives the sub-scores that differ between the two rubric
// variants. Weighting, clamping, and feedback tiering are shared by the
// Engine and never vary per policy.
type Policy interface {
	// Name identifies the policy in logs, metrics, and archived runs.
	Name() string
	// EvidenceScore proxies whether evidence was attached, from the tier.
	EvidenceScore(tier model.QualityTier) float64
	// LevelAdjust nudges the composite before clamping.
	LevelAdjust(tier model.QualityTier) float64
	// FlagPenalty is subtracted from the composite when the learner
	// carries any flag.
	FlagPenalty() float64
}

// RuleBased is the deterministic baseline policy: no level adjustment and
// a flat penalty for flagged learners.
type RuleBased struct{}

// Name returns the policy identifier.
func (RuleBased) Name() string { return "rule_based" }

// EvidenceScore returns the evidence proxy for the tier.
func (RuleBased) EvidenceScore(tier model.QualityTier) float64 {
	return evidenceProxy(tier)
}

// LevelAdjust is always zero for the rule-based policy.
func (RuleBased) LevelAdjust(model.QualityTier) float64 { return 0 }

// FlagPenalty returns the flat flagged-learner penalty.
func (RuleBased) FlagPenalty() float64 { return ruleBasedFlagPenalty }

// ModelAssisted mimics a second-opinion reviewer: weak work gets a small
// lift, strong work a small trim, and flags carry no penalty.
type ModelAssisted struct{}

// Name returns the policy identifier.
func (ModelAssisted) Name() string { return "model_assisted" }

// EvidenceScore returns the evidence proxy for the tier.
func (ModelAssisted) EvidenceScore(tier model.QualityTier) float64 {
	return evidenceProxy(tier)
}

// LevelAdjust lifts weak tiers and trims strong ones.
func (ModelAssisted) LevelAdjust(tier model.QualityTier) float64 {
	switch tier {
	case model.TierWeak:
		return assistWeakLift
	case model.TierStrong:
		return assistStrongTrim
	default:
		return 0
	}
}

// FlagPenalty is always zero for the model-assisted policy.
func (ModelAssisted) FlagPenalty() float64 { return 0 }

func evidenceProxy(tier model.QualityTier) float64 {
	if tier == model.TierWeak {
		return evidenceMissing
	}
	return evidenceAttached
}
