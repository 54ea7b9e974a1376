package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/seluk/margo/internal/domain/model"
)

// EventDependencies is the capture surface the event handlers submit to.
type EventDependencies interface {
	EnqueueSelection(ctx context.Context, ev model.SelectionEvent) (accepted, duplicate bool)
	EnqueueAnswer(ctx context.Context, ev model.AnswerEvent) (accepted, duplicate bool)
}

// EventsHandler handles capture event submissions.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// selectionRequest mirrors the wire schema for POST /events/selections.
// event_id is optional; without one the event makes no idempotency claim.
type selectionRequest struct {
	EventID     string `json:"event_id"`
	StartRef    string `json:"start_ref"`
	StartOffset int    `json:"start_offset"`
	EndRef      string `json:"end_ref"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

// validate rejects only what the session could never anchor. Short or
// empty text is deliberately let through: degenerate selections are a
// silent no-op downstream, not a client error.
func (s selectionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.StartRef) == "":
		return errors.New("missing start_ref")
	case strings.TrimSpace(s.EndRef) == "":
		return errors.New("missing end_ref")
	case s.StartOffset < 0:
		return errors.New("negative start_offset")
	case s.EndOffset < 0:
		return errors.New("negative end_offset")
	}
	return nil
}

// answerRequest mirrors the wire schema for POST /events/answers. Text may
// be empty: shortening an answer below the completion threshold is how a
// task reverts to incomplete.
type answerRequest struct {
	EventID string `json:"event_id"`
	TaskID  string `json:"task_id"`
	Text    string `json:"text"`
}

func (a answerRequest) validate() error {
	if strings.TrimSpace(a.TaskID) == "" {
		return errors.New("missing task_id")
	}
	return nil
}

// HandleSelection handles POST /events/selections requests.
func (h *EventsHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_selection"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	accepted, duplicate := h.deps.EnqueueSelection(r.Context(), model.SelectionEvent{
		EventID:     req.EventID,
		StartRef:    req.StartRef,
		StartOffset: req.StartOffset,
		EndRef:      req.EndRef,
		EndOffset:   req.EndOffset,
		Text:        req.Text,
	})
	writeAck(w, op, accepted, duplicate)
}

// HandleAnswer handles POST /events/answers requests.
func (h *EventsHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_answer"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	accepted, duplicate := h.deps.EnqueueAnswer(r.Context(), model.AnswerEvent{
		EventID: req.EventID,
		TaskID:  req.TaskID,
		Text:    req.Text,
	})
	writeAck(w, op, accepted, duplicate)
}

// writeAck maps the (accepted, duplicate) pair onto the wire contract:
// 202 accepted, 200 duplicate replay, 429 queue backpressure.
func writeAck(w http.ResponseWriter, op string, accepted, duplicate bool) {
	switch {
	case duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case accepted:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	default:
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	}
}
