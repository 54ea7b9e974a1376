// Package session owns the mutable state of one reading session: captured
// evidence spans, the fixed task list, the interaction counter, and the
// dwell-time accumulator. The dispatcher is the only writer; readers take
// consistent snapshots.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/seluk/margo/internal/domain/doc"
	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// Session configuration constants.
const (
	// Trimmed answers must exceed this many runes to complete a task.
	answerMinRunes = 3

	defaultDwellTick = time.Second

	spanIDPrefix = "ev"
)

// Session tracks evidence and task state over one document.
type Session struct {
	mu           sync.RWMutex
	document     *doc.Document
	tasks        []model.Task
	spans        []model.EvidenceSpan
	interactions int
	dwellMs      int64

	tick time.Duration
	log  logger.Logger
}

// New creates a session over the document with the fixed task list.
func New(document *doc.Document, tasks []model.Task, opts ...Option) *Session {
	s := &Session{
		document: document,
		tasks:    make([]model.Task, len(tasks)),
		tick:     defaultDwellTick,
	}
	copy(s.tasks, tasks)

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.Get().Named("session")
	}

	metrics.UpdateTaskProgress(s.completedLocked(), len(s.tasks), s.percentLocked())
	metrics.UpdateEvidenceSpans(0)

	return s
}

// StartDwell begins the dwell accumulator, the session's only continuously
// running process. One tick adds one tick-duration to the dwell total. The
// returned channel closes once the accumulator has fully stopped; no
// increments happen after that.
func (s *Session) StartDwell(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.addDwell(s.tick)
			}
		}
	}()
	return done
}

func (s *Session) addDwell(d time.Duration) {
	s.mu.Lock()
	s.dwellMs += d.Milliseconds()
	total := s.dwellMs
	s.mu.Unlock()

	metrics.UpdateSessionDwell(total)
}

// ApplySelection resolves a highlight gesture and, when it lands, appends
// exactly one evidence span and completes the evidence-capture task.
// Degenerate selections change nothing and report ok=false.
func (s *Session) ApplySelection(ctx context.Context, ev model.SelectionEvent) (model.EvidenceSpan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end, ok := s.document.Resolve(doc.Selection{
		StartRef:    ev.StartRef,
		StartOffset: ev.StartOffset,
		EndRef:      ev.EndRef,
		EndOffset:   ev.EndOffset,
		Text:        ev.Text,
	})
	if !ok {
		s.log.Debug(ctx, "selection ignored",
			logger.String("start_ref", ev.StartRef),
			logger.String("end_ref", ev.EndRef),
			logger.Int("start_offset", ev.StartOffset),
			logger.Int("end_offset", ev.EndOffset),
		)
		metrics.RecordEventIgnored()
		return model.EvidenceSpan{}, false
	}

	span := model.EvidenceSpan{
		ID:    fmt.Sprintf("%s-%d", spanIDPrefix, len(s.spans)+1),
		Text:  s.document.Slice(start, end),
		Start: start,
		End:   end,
	}
	s.spans = append(s.spans, span)
	s.interactions++

	// Completing an already-complete task is a no-op.
	for i := range s.tasks {
		if s.tasks[i].Kind == model.TaskEvidenceCapture {
			s.tasks[i].Completed = true
		}
	}

	metrics.RecordSelectionCaptured()
	metrics.UpdateEvidenceSpans(len(s.spans))
	metrics.UpdateTaskProgress(s.completedLocked(), len(s.tasks), s.percentLocked())

	return span, true
}

// ApplyAnswer stores the answer text on its task and re-derives completion
// from the trimmed length. Shortening an answer can revert completion.
// Unknown task ids and evidence-capture tasks are ignored.
func (s *Session) ApplyAnswer(ctx context.Context, ev model.AnswerEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != ev.TaskID {
			continue
		}
		if s.tasks[i].Kind == model.TaskEvidenceCapture {
			break
		}

		s.tasks[i].Answer = ev.Text
		s.tasks[i].Completed = utf8.RuneCountInString(strings.TrimSpace(ev.Text)) > answerMinRunes
		s.interactions++

		metrics.RecordAnswerApplied()
		metrics.UpdateTaskProgress(s.completedLocked(), len(s.tasks), s.percentLocked())
		return true
	}

	s.log.Debug(ctx, "answer ignored", logger.String("task_id", ev.TaskID))
	metrics.RecordEventIgnored()
	return false
}

// Evidence returns captured spans in capture order. A non-positive limit or
// one past the end returns everything.
func (s *Session) Evidence(limit int) []model.EvidenceSpan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.spans)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.EvidenceSpan, n)
	copy(out, s.spans[:n])
	return out
}

// Tasks returns a copy of the task list including answers.
func (s *Session) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Progress reports completion state, percent complete, and session
// counters.
func (s *Session) Progress() model.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]model.TaskStatus, len(s.tasks))
	for i, t := range s.tasks {
		statuses[i] = model.TaskStatus{
			ID:        t.ID,
			Kind:      t.Kind,
			Prompt:    t.Prompt,
			Completed: t.Completed,
		}
	}

	return model.Progress{
		Tasks:        statuses,
		Percent:      s.percentLocked(),
		SpanCount:    len(s.spans),
		DwellMs:      s.dwellMs,
		Interactions: s.interactions,
	}
}

// Document returns the session's reading source.
func (s *Session) Document() *doc.Document {
	return s.document
}

// DwellMs returns the accumulated dwell time.
func (s *Session) DwellMs() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dwellMs
}

func (s *Session) completedLocked() int {
	n := 0
	for _, t := range s.tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

func (s *Session) percentLocked() float64 {
	if len(s.tasks) == 0 {
		return 0
	}
	return float64(s.completedLocked()) / float64(len(s.tasks)) * 100
}
