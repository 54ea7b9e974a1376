package api

import (
	"context"
	"net/http"

	"github.com/seluk/margo/internal/domain/doc"
)

// DocumentDependencies exposes the loaded session document.
type DocumentDependencies interface {
	Document(ctx context.Context) *doc.Document
}

// DocumentHandler handles document queries.
type DocumentHandler struct {
	deps DocumentDependencies
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(deps DocumentDependencies) *DocumentHandler {
	return &DocumentHandler{deps: deps}
}

// documentResponse is the render-ready shape: the flat text clients anchor
// offsets against, plus the run list they reference selections by.
type documentResponse struct {
	Text string    `json:"text"`
	Runs []doc.Run `json:"runs"`
}

// HandleGet handles GET /document requests.
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	document := h.deps.Document(r.Context())
	writeJSON(w, http.StatusOK, documentResponse{
		Text: document.Text(),
		Runs: document.Runs(),
	})
}
