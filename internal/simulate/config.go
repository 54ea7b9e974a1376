package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Learners   int           // Number of learners to seed
	Selections int           // Number of selection events to generate
	Answers    int           // Number of answer events to generate
	Replays    int           // Number of events replayed to exercise idempotency
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated events
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// selectionEvent mirrors the POST /events/selections request body.
type selectionEvent struct {
	EventID     string `json:"event_id"`
	StartRef    string `json:"start_ref"`
	StartOffset int    `json:"start_offset"`
	EndRef      string `json:"end_ref"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

// answerEvent mirrors the POST /events/answers request body.
type answerEvent struct {
	EventID string `json:"event_id"`
	TaskID  string `json:"task_id"`
	Text    string `json:"text"`
}

// Event kinds for the generated-event union.
const (
	kindSelection = "selection"
	kindAnswer    = "answer"
)

// generatedEvent is the replayable union written to the output file:
// exactly one of Selection or Answer is set, according to Kind.
type generatedEvent struct {
	Kind      string          `json:"kind"`
	Selection *selectionEvent `json:"selection,omitempty"`
	Answer    *answerEvent    `json:"answer,omitempty"`
}

func (e generatedEvent) id() string {
	switch e.Kind {
	case kindSelection:
		if e.Selection != nil {
			return e.Selection.EventID
		}
	case kindAnswer:
		if e.Answer != nil {
			return e.Answer.EventID
		}
	}
	return ""
}

// seedLearner mirrors the POST /learners request body.
type seedLearner struct {
	Name         string `json:"name"`
	DwellMs      int64  `json:"dwell_ms"`
	Interactions int    `json:"interactions"`
	Tier         string `json:"quality_tier"`
	Answer       string `json:"answer"`
}

// ackResponse mirrors the capture acknowledgement body.
type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// runView mirrors one document run in GET /document.
type runView struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

// documentView mirrors GET /document.
type documentView struct {
	Text string    `json:"text"`
	Runs []runView `json:"runs"`
}

// taskView mirrors one task in GET /progress.
type taskView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Prompt    string `json:"prompt"`
	Completed bool   `json:"completed"`
}

// progressView mirrors GET /progress.
type progressView struct {
	Tasks        []taskView `json:"tasks"`
	Percent      float64    `json:"percent"`
	SpanCount    int        `json:"span_count"`
	DwellMs      int64      `json:"dwell_ms"`
	Interactions int        `json:"interactions"`
}

// flagView mirrors one flagged learner in a flag report.
type flagView struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Origin string `json:"origin"`
}

// flagReport mirrors GET /flags and the detection/flag mutation responses.
type flagReport struct {
	Capability bool       `json:"capability"`
	Mode       bool       `json:"mode"`
	Active     bool       `json:"active"`
	Flags      []flagView `json:"flags"`
}

// assessmentView mirrors a learner's assessment in scoring responses.
type assessmentView struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// learnerView mirrors one learner in scoring responses.
type learnerView struct {
	Name       string          `json:"name"`
	Tier       string          `json:"quality_tier"`
	Assessment *assessmentView `json:"assessment"`
}

// scoringRun mirrors POST /scores/{policy}.
type scoringRun struct {
	Policy   string        `json:"policy"`
	Learners []learnerView `json:"learners"`
}

// Report holds simulation statistics.
type Report struct {
	LearnersSeeded  int
	EventsGenerated int
	EventsSubmitted int
	EventsAccepted  int
	EventsDuplicate int
	EventsFailed    int
	SpansCaptured   int
	PercentComplete float64
	FlaggedLearners int
	ScoredLearners  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
