package model

// SelectionEvent is a highlight gesture over the rendered document.
// Offsets are local to the referenced runs; EventID is optional and used
// only for idempotency.
type SelectionEvent struct {
	EventID     string
	StartRef    string
	StartOffset int
	EndRef      string
	EndOffset   int
	Text        string
}

// AnswerEvent is an answer-change gesture for one task.
type AnswerEvent struct {
	EventID string
	TaskID  string
	Text    string
}

// CaptureKind tags the payload carried by a CaptureEvent.
type CaptureKind string

// Capture kinds.
const (
	CaptureSelection CaptureKind = "selection"
	CaptureAnswer    CaptureKind = "answer"
)

// CaptureEvent is the queue payload: exactly one of Selection or Answer is
// set, according to Kind.
type CaptureEvent struct {
	Kind      CaptureKind
	Selection *SelectionEvent
	Answer    *AnswerEvent
}

// NewSelectionCapture wraps a selection event for the queue.
func NewSelectionCapture(ev SelectionEvent) CaptureEvent {
	return CaptureEvent{Kind: CaptureSelection, Selection: &ev}
}

// NewAnswerCapture wraps an answer event for the queue.
func NewAnswerCapture(ev AnswerEvent) CaptureEvent {
	return CaptureEvent{Kind: CaptureAnswer, Answer: &ev}
}

// EventID returns the idempotency id of the wrapped event, if any.
func (e CaptureEvent) EventID() string {
	switch e.Kind {
	case CaptureSelection:
		if e.Selection != nil {
			return e.Selection.EventID
		}
	case CaptureAnswer:
		if e.Answer != nil {
			return e.Answer.EventID
		}
	}
	return ""
}
