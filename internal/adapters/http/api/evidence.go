package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/seluk/margo/internal/domain/model"
)

// EvidenceDependencies exposes the captured evidence spans.
type EvidenceDependencies interface {
	Evidence(ctx context.Context, limit int) []model.EvidenceSpan
}

// EvidenceHandler handles evidence listing.
type EvidenceHandler struct {
	deps EvidenceDependencies
}

// NewEvidenceHandler creates a new evidence handler.
func NewEvidenceHandler(deps EvidenceDependencies) *EvidenceHandler {
	return &EvidenceHandler{deps: deps}
}

// HandleList handles GET /evidence requests. The optional limit parameter
// caps the page; out-of-range values are clamped downstream, never rejected.
func (h *EvidenceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_evidence"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, h.deps.Evidence(r.Context(), limit))
}
