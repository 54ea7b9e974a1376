package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/seluk/margo/internal/domain/model"
)

// LearnerDependencies exposes the roster for listing and seeding.
type LearnerDependencies interface {
	Learners(ctx context.Context) []model.LearnerRecord
	SeedLearner(ctx context.Context, rec model.LearnerRecord) error
}

// LearnersHandler handles roster requests.
type LearnersHandler struct {
	deps LearnerDependencies
}

// NewLearnersHandler creates a new learners handler.
func NewLearnersHandler(deps LearnerDependencies) *LearnersHandler {
	return &LearnersHandler{deps: deps}
}

// learnerRequest mirrors the wire schema for POST /learners. Seeding never
// carries flags or assessments; those are engine-owned.
type learnerRequest struct {
	Name         string `json:"name"`
	DwellMs      int64  `json:"dwell_ms"`
	Interactions int    `json:"interactions"`
	Tier         string `json:"quality_tier"`
	Answer       string `json:"answer"`
}

func (l learnerRequest) validate() error {
	switch {
	case strings.TrimSpace(l.Name) == "":
		return errors.New("missing name")
	case l.DwellMs < 0:
		return errors.New("negative dwell_ms")
	case l.Interactions < 0:
		return errors.New("negative interactions")
	case !model.QualityTier(l.Tier).Valid():
		return fmt.Errorf("unknown quality_tier %q", l.Tier)
	}
	return nil
}

// HandleCollection routes GET and POST /learners.
func (h *LearnersHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleSeed(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *LearnersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Learners(r.Context()))
}

func (h *LearnersHandler) handleSeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_learner"

	var req learnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rec := model.LearnerRecord{
		Name:         req.Name,
		DwellMs:      req.DwellMs,
		Interactions: req.Interactions,
		Tier:         model.QualityTier(req.Tier),
		Answer:       req.Answer,
	}
	if err := h.deps.SeedLearner(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
