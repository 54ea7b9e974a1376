package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/seluk/margo/internal/domain/model"
)

// FlagDependencies exposes detection switches and flag mutations. Every
// mutation returns the reconciled roster so callers see the post-rule state.
type FlagDependencies interface {
	Learners(ctx context.Context) []model.LearnerRecord
	Switches(ctx context.Context) model.DetectionSwitches
	SetSwitches(ctx context.Context, switches model.DetectionSwitches) ([]model.LearnerRecord, error)
	SeedFlag(ctx context.Context, name, label string) ([]model.LearnerRecord, error)
	ClearFlag(ctx context.Context, name string) ([]model.LearnerRecord, error)
}

// FlagsHandler handles flag reports, detection switches, and per-learner
// flag mutations.
type FlagsHandler struct {
	deps FlagDependencies
}

// NewFlagsHandler creates a new flags handler.
func NewFlagsHandler(deps FlagDependencies) *FlagsHandler {
	return &FlagsHandler{deps: deps}
}

// flagEntry is one flagged learner in a flag report.
type flagEntry struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Origin string `json:"origin"`
}

// flagsResponse reports the switch state plus every flagged learner.
type flagsResponse struct {
	Capability bool        `json:"capability"`
	Mode       bool        `json:"mode"`
	Active     bool        `json:"active"`
	Flags      []flagEntry `json:"flags"`
}

func flagReport(switches model.DetectionSwitches, learners []model.LearnerRecord) flagsResponse {
	resp := flagsResponse{
		Capability: switches.Capability,
		Mode:       switches.Mode,
		Active:     switches.Active(),
		Flags:      []flagEntry{},
	}
	for _, rec := range learners {
		if rec.Flag == nil {
			continue
		}
		resp.Flags = append(resp.Flags, flagEntry{
			Name:   rec.Name,
			Label:  rec.Flag.Label,
			Origin: string(rec.Flag.Origin),
		})
	}
	return resp
}

// detectionRequest mirrors the wire schema for PUT /detection. Both
// switches are replaced on every call.
type detectionRequest struct {
	Capability bool `json:"capability"`
	Mode       bool `json:"mode"`
}

// flagRequest mirrors the wire schema for POST /learners/{name}/flag.
type flagRequest struct {
	Label string `json:"label"`
}

func (f flagRequest) validate() error {
	if strings.TrimSpace(f.Label) == "" {
		return errors.New("missing label")
	}
	return nil
}

// HandleList handles GET /flags requests.
func (h *FlagsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, flagReport(h.deps.Switches(r.Context()), h.deps.Learners(r.Context())))
}

// HandleDetection handles PUT /detection requests. The reconciled roster is
// folded into the report so a toggle shows its flag effects immediately.
func (h *FlagsHandler) HandleDetection(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_detection"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}

	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switches := model.DetectionSwitches{Capability: req.Capability, Mode: req.Mode}
	updated, err := h.deps.SetSwitches(r.Context(), switches)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, flagReport(switches, updated))
}

// HandleLearnerFlag handles POST and DELETE /learners/{name}/flag requests.
func (h *FlagsHandler) HandleLearnerFlag(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/learners/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "flag" {
		http.NotFound(w, r)
		return
	}
	name := parts[0]

	switch r.Method {
	case http.MethodPost:
		h.handleSeedFlag(w, r, name)
	case http.MethodDelete:
		h.handleClearFlag(w, r, name)
	default:
		http.NotFound(w, r)
	}
}

func (h *FlagsHandler) handleSeedFlag(w http.ResponseWriter, r *http.Request, name string) {
	const op = "api.post_flag"

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	updated, err := h.deps.SeedFlag(r.Context(), name, req.Label)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, flagReport(h.deps.Switches(r.Context()), updated))
}

func (h *FlagsHandler) handleClearFlag(w http.ResponseWriter, r *http.Request, name string) {
	const op = "api.delete_flag"

	updated, err := h.deps.ClearFlag(r.Context(), name)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, flagReport(h.deps.Switches(r.Context()), updated))
}
