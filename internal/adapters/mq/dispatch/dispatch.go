// Package dispatch runs the single consumer that applies capture events
// to the reading session.
//
// Every state transition flows through one Run loop, so the session sees
// exactly one writer and each event is applied atomically in arrival
// order.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// defaultName identifies the dispatcher in logs.
const defaultName = "dispatcher"

// Event is what the dispatcher reads off the queue.
type Event = model.CaptureEvent

// Applier is the session surface the dispatcher writes to.
type Applier interface {
	ApplySelection(ctx context.Context, ev model.SelectionEvent) (model.EvidenceSpan, bool)
	ApplyAnswer(ctx context.Context, ev model.AnswerEvent) bool
}

// Queue defines how the dispatcher receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Dispatcher applies queued capture events to the session one at a time.
type Dispatcher struct {
	queue   Queue
	applier Applier
	name    string

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, applier Applier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		applier:  applier,
		name:     defaultName,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		log:      logger.Get().Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.name != defaultName {
		d.log = d.log.Named(d.name)
	}
	return d
}

// Run consumes events until ctx is cancelled, Shutdown is called, or the
// queue closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			// The queue must be closed by now; drain what it accepted
			// so no acknowledged event is lost.
			for event := range events {
				d.apply(ctx, event)
			}
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			d.apply(ctx, event)
		}
	}
}

// Shutdown stops the dispatcher after the queue drains. Callers close the
// queue first, then bound the drain with ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdown)

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.log.Warn(ctx, "dispatcher shutdown timed out")
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

// apply routes one event to the session. Events the session rejects are
// routine (degenerate selections, unknown tasks) and only logged.
func (d *Dispatcher) apply(ctx context.Context, event Event) {
	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()

	switch event.Kind {
	case model.CaptureSelection:
		if event.Selection == nil {
			metrics.RecordErrorByComponent("dispatch", "missing_payload")
			return
		}
		if _, ok := d.applier.ApplySelection(ctx, *event.Selection); !ok {
			d.log.Debug(ctx, "selection not applied",
				logger.String("event_id", event.EventID()),
			)
		}
	case model.CaptureAnswer:
		if event.Answer == nil {
			metrics.RecordErrorByComponent("dispatch", "missing_payload")
			return
		}
		if ok := d.applier.ApplyAnswer(ctx, *event.Answer); !ok {
			d.log.Debug(ctx, "answer not applied",
				logger.String("task_id", event.Answer.TaskID),
			)
		}
	default:
		metrics.RecordErrorByComponent("dispatch", "unknown_kind")
		d.log.Warn(ctx, "unknown capture kind", logger.String("kind", string(event.Kind)))
	}
}
