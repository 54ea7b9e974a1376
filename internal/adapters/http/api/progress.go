package api

import (
	"context"
	"net/http"

	"github.com/seluk/margo/internal/domain/model"
)

// ProgressDependencies exposes the session progress snapshot.
type ProgressDependencies interface {
	Progress(ctx context.Context) model.Progress
}

// ProgressHandler handles progress queries.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleGet handles GET /progress requests.
func (h *ProgressHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Progress(r.Context()))
}
