// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seluk/margo/internal/adapters/repository"
	"github.com/seluk/margo/internal/domain/engagement"
)

// Dependencies bundles every service surface the handlers touch. The app
// service satisfies it in production; tests supply small fakes per handler.
type Dependencies interface {
	EventDependencies
	EvidenceDependencies
	ProgressDependencies
	DocumentDependencies
	LearnerDependencies
	ScoreDependencies
	FlagDependencies
}

// Server wires the HTTP handlers for the reading API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	evidenceHandler *EvidenceHandler
	progressHandler *ProgressHandler
	documentHandler *DocumentHandler
	learnersHandler *LearnersHandler
	scoresHandler   *ScoresHandler
	flagsHandler    *FlagsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		evidenceHandler: NewEvidenceHandler(deps),
		progressHandler: NewProgressHandler(deps),
		documentHandler: NewDocumentHandler(deps),
		learnersHandler: NewLearnersHandler(deps),
		scoresHandler:   NewScoresHandler(deps),
		flagsHandler:    NewFlagsHandler(deps),
	}
}

// Register attaches every route to mux. Handlers are wrapped with the
// metrics middleware so request counts and latencies land in Prometheus.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events/selections", MetricsMiddleware(s.eventsHandler.HandleSelection, "events_selections"))
	mux.HandleFunc("/events/answers", MetricsMiddleware(s.eventsHandler.HandleAnswer, "events_answers"))
	mux.HandleFunc("/evidence", MetricsMiddleware(s.evidenceHandler.HandleList, "evidence"))
	mux.HandleFunc("/progress", MetricsMiddleware(s.progressHandler.HandleGet, "progress"))
	mux.HandleFunc("/document", MetricsMiddleware(s.documentHandler.HandleGet, "document"))
	mux.HandleFunc("/learners", MetricsMiddleware(s.learnersHandler.HandleCollection, "learners"))
	mux.HandleFunc("/learners/", MetricsMiddleware(s.flagsHandler.HandleLearnerFlag, "learner_flag"))
	mux.HandleFunc("/scores/rule-based", MetricsMiddleware(s.scoresHandler.HandleRuleBased, "scores_rule_based"))
	mux.HandleFunc("/scores/model-assisted", MetricsMiddleware(s.scoresHandler.HandleModelAssisted, "scores_model_assisted"))
	mux.HandleFunc("/flags", MetricsMiddleware(s.flagsHandler.HandleList, "flags"))
	mux.HandleFunc("/detection", MetricsMiddleware(s.flagsHandler.HandleDetection, "detection"))
}

// ackResponse acknowledges a capture event submission.
type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// errorResponse is the uniform error body for non-2xx replies.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound reports whether err names a learner the roster does not hold.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, engagement.ErrUnknownLearner)
}
