package api

import (
	"context"
	"net/http"

	"github.com/seluk/margo/internal/domain/model"
)

// ScoreDependencies exposes roster-wide rubric scoring.
type ScoreDependencies interface {
	ScoreAll(ctx context.Context, policy string) ([]model.LearnerRecord, error)
}

// ScoresHandler handles scoring-run requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// scoresResponse reports one scoring run over the whole roster.
type scoresResponse struct {
	Policy   string                `json:"policy"`
	Learners []model.LearnerRecord `json:"learners"`
}

// HandleRuleBased handles POST /scores/rule-based requests.
func (h *ScoresHandler) HandleRuleBased(w http.ResponseWriter, r *http.Request) {
	h.score(w, r, "rule_based")
}

// HandleModelAssisted handles POST /scores/model-assisted requests.
func (h *ScoresHandler) HandleModelAssisted(w http.ResponseWriter, r *http.Request) {
	h.score(w, r, "model_assisted")
}

// The policy is fixed by the route, so an unknown-policy error here means a
// wiring bug, not client input; it surfaces as a 500.
func (h *ScoresHandler) score(w http.ResponseWriter, r *http.Request, policy string) {
	const op = "api.post_scores"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	scored, err := h.deps.ScoreAll(r.Context(), policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, scoresResponse{Policy: policy, Learners: scored})
}
