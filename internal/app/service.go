// Package service wires the reading-session components together and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seluk/margo/internal/adapters/archive"
	"github.com/seluk/margo/internal/adapters/mq/dispatch"
	"github.com/seluk/margo/internal/adapters/mq/queue"
	"github.com/seluk/margo/internal/adapters/repository"
	"github.com/seluk/margo/internal/domain/dedupe"
	"github.com/seluk/margo/internal/domain/doc"
	"github.com/seluk/margo/internal/domain/engagement"
	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/internal/domain/rubric"
	"github.com/seluk/margo/internal/domain/session"
	"github.com/seluk/margo/internal/ingest"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// Defaults mirror the config package so a bare New is runnable in tests.
const (
	defaultQueueSize        = 65536
	defaultDedupeSize       = 100000
	defaultDwellTick        = time.Second
	defaultMaxEvidenceLimit = 500

	// shutdownTimeout bounds the dispatcher drain during Stop.
	shutdownTimeout = 5 * time.Second
)

// Service owns the session, the capture pipeline, and the learner roster.
type Service struct {
	mu sync.RWMutex

	// Core components, constructed in Start.
	document   *doc.Document
	session    *session.Session
	roster     repository.Store
	deduper    dedupe.Deduper
	queue      queue.Queue
	dispatcher *dispatch.Dispatcher
	engine     *rubric.Engine
	controller *engagement.Controller
	archive    *archive.Archive

	// Configuration
	documentPath     string
	tasks            []model.Task
	queueSize        int
	dedupeSize       int
	dwellTick        time.Duration
	maxEvidenceLimit int
	thresholds       model.SkimThresholds
	switches         model.DetectionSwitches
	archivePath      string

	// State
	started   bool
	dwellStop context.CancelFunc
	dwellDone <-chan struct{}

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDocumentPath sets the document to load at start. An empty path keeps
// the built-in sample passage.
func WithDocumentPath(path string) Option {
	return func(s *Service) {
		s.documentPath = path
	}
}

// WithTasks sets the fixed task list presented by the session.
func WithTasks(tasks []model.Task) Option {
	return func(s *Service) {
		s.tasks = tasks
	}
}

// WithQueueSize sets the capture queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the event-id dedupe window.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDwellTick sets the dwell accumulator tick.
func WithDwellTick(tick time.Duration) Option {
	return func(s *Service) {
		if tick > 0 {
			s.dwellTick = tick
		}
	}
}

// WithMaxEvidenceLimit caps the page size of evidence reads.
func WithMaxEvidenceLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxEvidenceLimit = limit
		}
	}
}

// WithThresholds sets the skim suspect boundary. Validation happens in
// Start when the controller is built.
func WithThresholds(thresholds model.SkimThresholds) Option {
	return func(s *Service) {
		s.thresholds = thresholds
	}
}

// WithSwitches sets the initial detection switch state.
func WithSwitches(switches model.DetectionSwitches) Option {
	return func(s *Service) {
		s.switches = switches
	}
}

// WithArchivePath enables the SQLite scoring archive at the given path.
func WithArchivePath(path string) Option {
	return func(s *Service) {
		s.archivePath = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service with default configuration. Nothing runs until
// Start is called.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		dwellTick:        defaultDwellTick,
		maxEvidenceLimit: defaultMaxEvidenceLimit,
		thresholds: model.SkimThresholds{
			MinDwellMs:      30000,
			MinInteractions: 3,
			GraceRatio:      0.5,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the document and builds every component. Calling Start on a
// started service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.log == nil {
		s.log = logger.Get().Named("service")
	}

	s.log.Info(ctx, "starting reading service...")

	// The document is loaded before any component is built so a bad path
	// fails the whole start.
	document, err := ingest.Load(ctx, s.documentPath)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	s.document = document

	controller, err := engagement.NewController(s.thresholds)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}
	s.controller = controller

	if s.archivePath != "" {
		arch, err := archive.Open(s.archivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		s.archive = arch
	}

	s.roster = repository.NewMemoryStore()
	s.deduper = dedupe.NewRingDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewMemoryQueue(queue.WithCapacity(s.queueSize))
	s.session = session.New(document, s.tasks, session.WithDwellTick(s.dwellTick))
	s.engine = rubric.NewEngine(document.Text())
	s.dispatcher = dispatch.NewDispatcher(s.queue, s.session)

	// The dispatcher and the dwell accumulator outlive ctx so queued
	// events still drain during shutdown. The dispatcher exits when the
	// queue closes; the accumulator is cancelled by Stop.
	runCtx := context.WithoutCancel(ctx)
	dwellCtx, cancel := context.WithCancel(runCtx)
	s.dwellStop = cancel
	s.dwellDone = s.session.StartDwell(dwellCtx)
	go s.dispatcher.Run(runCtx)

	s.started = true
	s.log.Info(ctx, "reading service started",
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("tasks", len(s.tasks)),
		logger.Int("document_bytes", document.Len()),
		logger.Bool("archive", s.archive != nil),
	)

	return nil
}

// Stop drains the pipeline and shuts the service down. Calling Stop on a
// stopped service is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.log.Info(ctx, "stopping reading service...")

	// Stop the dwell accumulator first so no increment races the drain.
	if s.dwellStop != nil {
		s.dwellStop()
		<-s.dwellDone
	}

	// Close the queue, then bound the dispatcher drain.
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.dispatcher != nil {
		drainCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := s.dispatcher.Shutdown(drainCtx); err != nil {
			s.log.Warn(ctx, "dispatcher drain incomplete", logger.Error(err))
		}
		cancel()
	}

	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			s.log.Warn(ctx, "close archive", logger.Error(err))
		}
	}

	s.started = false
	s.log.Info(ctx, "reading service stopped")
}

// EnqueueSelection submits a selection event for asynchronous application.
// It returns (accepted, duplicate): a duplicate event id is acknowledged
// without re-enqueueing, and a full queue rejects the event outright.
func (s *Service) EnqueueSelection(ctx context.Context, ev model.SelectionEvent) (bool, bool) {
	return s.enqueue(ctx, model.NewSelectionCapture(ev))
}

// EnqueueAnswer submits an answer-change event for asynchronous application.
func (s *Service) EnqueueAnswer(ctx context.Context, ev model.AnswerEvent) (bool, bool) {
	return s.enqueue(ctx, model.NewAnswerCapture(ev))
}

func (s *Service) enqueue(ctx context.Context, e queue.Event) (accepted, duplicate bool) {
	id := e.EventID()
	if id != "" && s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordEventDuplicate()
		s.log.Debug(ctx, "duplicate capture event", logger.String("event_id", id))
		return false, true
	}

	if !s.queue.Enqueue(ctx, e) {
		// Forget the id so a retry of the same event is not mistaken for
		// a duplicate.
		if id != "" {
			s.deduper.Unrecord(ctx, id)
		}
		s.log.Debug(ctx, "capture event rejected", logger.String("event_id", id))
		return false, false
	}
	return true, false
}

// Evidence returns captured spans in order. A non-positive or oversized
// limit is clamped to the configured maximum page size.
func (s *Service) Evidence(ctx context.Context, limit int) []model.EvidenceSpan {
	if limit <= 0 || limit > s.maxEvidenceLimit {
		limit = s.maxEvidenceLimit
	}
	return s.session.Evidence(limit)
}

// Progress returns the aggregate session view.
func (s *Service) Progress(ctx context.Context) model.Progress {
	return s.session.Progress()
}

// Document returns the session document.
func (s *Service) Document(ctx context.Context) *doc.Document {
	return s.document
}

// Learners returns the roster ordered by name.
func (s *Service) Learners(ctx context.Context) []model.LearnerRecord {
	return s.roster.List(ctx)
}

// SeedLearner inserts or replaces a learner record, then re-applies the
// detection switches because the learner set changed.
func (s *Service) SeedLearner(ctx context.Context, rec model.LearnerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.roster.Seed(ctx, rec); err != nil {
		return err
	}

	reconciled := s.controller.Reconcile(ctx, s.roster.List(ctx), s.switches)
	return s.roster.ReplaceAll(ctx, reconciled)
}

// ScoreAll scores every learner under the named policy, replaces the
// roster with the scored records, and returns them.
func (s *Service) ScoreAll(ctx context.Context, policy string) ([]model.LearnerRecord, error) {
	p, ok := policyFor(policy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scored := s.engine.AssessAll(ctx, p, s.roster.List(ctx))
	if err := s.roster.ReplaceAll(ctx, scored); err != nil {
		return nil, fmt.Errorf("replace roster: %w", err)
	}

	if s.archive != nil {
		if _, err := s.archive.RecordRun(ctx, p.Name(), scored); err != nil {
			// Archiving is best-effort; the scored roster is already live.
			s.log.Warn(ctx, "archive scoring run", logger.Error(err))
		}
	}
	return scored, nil
}

// Switches returns the current detection switch state.
func (s *Service) Switches(ctx context.Context) model.DetectionSwitches {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.switches
}

// SetSwitches stores the detection switches, reconciles flags over the
// roster, and returns the reconciled records.
func (s *Service) SetSwitches(ctx context.Context, switches model.DetectionSwitches) ([]model.LearnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.switches = switches
	reconciled := s.controller.Reconcile(ctx, s.roster.List(ctx), switches)
	if err := s.roster.ReplaceAll(ctx, reconciled); err != nil {
		return nil, fmt.Errorf("replace roster: %w", err)
	}
	return reconciled, nil
}

// SeedFlag attaches a persisted flag to the named learner. Like every
// roster change, the switches are re-applied so the flag rule holds over
// the new set.
func (s *Service) SeedFlag(ctx context.Context, name, label string) ([]model.LearnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.controller.SeedPersisted(ctx, s.roster.List(ctx), name, label)
	if err != nil {
		return nil, err
	}

	updated = s.controller.Reconcile(ctx, updated, s.switches)
	if err := s.roster.ReplaceAll(ctx, updated); err != nil {
		return nil, fmt.Errorf("replace roster: %w", err)
	}
	return updated, nil
}

// ClearFlag removes the named learner's persisted flag, then re-applies
// the switches: clearing the last flag under active detection lets the
// demo exemplar be seeded again.
func (s *Service) ClearFlag(ctx context.Context, name string) ([]model.LearnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.controller.ClearPersisted(ctx, s.roster.List(ctx), name)
	if err != nil {
		return nil, err
	}

	updated = s.controller.Reconcile(ctx, updated, s.switches)
	if err := s.roster.ReplaceAll(ctx, updated); err != nil {
		return nil, fmt.Errorf("replace roster: %w", err)
	}
	return updated, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"queue_size":  s.queueSize,
		"dedupe_size": s.dedupeSize,
	}

	if s.started {
		progress := s.session.Progress()
		learners := len(s.roster.List(ctx))

		stats["queue_length"] = s.queue.Len(ctx)
		stats["dedupe_entries"] = s.deduper.Size()
		stats["learners"] = learners
		stats["span_count"] = progress.SpanCount
		stats["percent_complete"] = progress.Percent
		stats["dwell_ms"] = progress.DwellMs
		stats["detection_active"] = s.switches.Active()

		metrics.UpdateLearnersTotal(learners)
	}

	return stats
}

// policyFor maps a wire policy name to its rubric implementation.
func policyFor(name string) (rubric.Policy, bool) {
	ruleBased := rubric.RuleBased{}
	assisted := rubric.ModelAssisted{}

	switch name {
	case ruleBased.Name():
		return ruleBased, true
	case assisted.Name():
		return assisted, true
	default:
		return nil, false
	}
}
