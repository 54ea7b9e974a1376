package simulate

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"github.com/google/uuid"
)

// Selection generation constants.
const (
	maxSelectionWords = 6
	degenerateEvery   = 10
	emptyAnswerEvery  = 8
)

// Learner profile cases.
const (
	caseEngaged = 0
	caseSteady  = 1
	caseSkimmer = 2
	caseErratic = 3

	profileCount = 4
)

// Learner profile ranges, in milliseconds of dwell and interaction counts.
const (
	engagedDwellMin   = 45_000
	engagedDwellRange = 75_000
	steadyDwellMin    = 20_000
	steadyDwellRange  = 40_000
	skimmerDwellMin   = 500
	skimmerDwellRange = 7_500
	erraticDwellMin   = 1_000
	erraticDwellRange = 90_000

	engagedInteractionsMin   = 8
	engagedInteractionsRange = 12
	steadyInteractionsMin    = 4
	steadyInteractionsRange  = 6
	skimmerInteractionsRange = 3
	erraticInteractionsRange = 15
)

var answerPool = []string{
	"The passage explains the idea step by step and supports it with a concrete example from the text.",
	"Because the opening paragraph states the claim directly and the rest of the section defends it.",
	"The author compares the two cases and concludes that the first one generalizes.",
	"It means the process repeats until the condition stops holding.",
	"ok",
	"The key term is defined in the second run and used consistently afterwards.",
}

var tiers = []string{"strong", "medium", "weak"}

// randomInt returns a uniform random int in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// wordSpan is one word's byte window within a run's text.
type wordSpan struct {
	start int
	end   int
}

// wordSpans splits text into words, keeping byte offsets so generated
// selections carry valid run-local anchors.
func wordSpans(text string) []wordSpan {
	var spans []wordSpan
	inWord := false
	start := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				spans = append(spans, wordSpan{start: start, end: i})
				inWord = false
			}
			continue
		}
		if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		spans = append(spans, wordSpan{start: start, end: len(text)})
	}
	return spans
}

// generateEvents builds the full event list: selections anchored to real
// document runs, answers targeting real task ids, plus replayed copies of
// already-generated events to exercise idempotency downstream.
func generateEvents(document documentView, progress progressView, config *Config, report *Report) []generatedEvent {
	events := make([]generatedEvent, 0, config.Selections+config.Answers+config.Replays)

	for _, sel := range generateSelections(document, config.Selections) {
		events = append(events, generatedEvent{Kind: kindSelection, Selection: &sel})
	}
	for _, ans := range generateAnswers(progress.Tasks, config.Answers) {
		events = append(events, generatedEvent{Kind: kindAnswer, Answer: &ans})
	}

	events = appendReplays(events, config.Replays)
	report.EventsGenerated = len(events)
	return events
}

// generateSelections picks word windows inside real runs. Every tenth event
// degrades to a single-rune sliver so the silent-drop path gets traffic.
func generateSelections(document documentView, n int) []selectionEvent {
	type candidate struct {
		ref   string
		text  string
		words []wordSpan
	}
	var candidates []candidate
	for _, run := range document.Runs {
		words := wordSpans(run.Text)
		if len(words) == 0 {
			continue
		}
		candidates = append(candidates, candidate{ref: run.Ref, text: run.Text, words: words})
	}
	if len(candidates) == 0 || n <= 0 {
		return nil
	}

	events := make([]selectionEvent, 0, n)
	for i := 0; i < n; i++ {
		c := candidates[randomInt(len(candidates))]
		first := randomInt(len(c.words))
		last := first + randomInt(maxSelectionWords)
		if last >= len(c.words) {
			last = len(c.words) - 1
		}
		start := c.words[first].start
		end := c.words[last].end

		ev := selectionEvent{
			EventID:     uuid.New().String(),
			StartRef:    c.ref,
			StartOffset: start,
			EndRef:      c.ref,
			EndOffset:   end,
			Text:        c.text[start:end],
		}
		if i%degenerateEvery == degenerateEvery-1 {
			ev.EndOffset = ev.StartOffset + 1
			ev.Text = "a"
		}
		events = append(events, ev)
	}
	return events
}

// generateAnswers targets the answer-kind tasks round-robin. Every eighth
// answer is empty, which reverts its task downstream.
func generateAnswers(tasks []taskView, n int) []answerEvent {
	var targets []string
	for _, task := range tasks {
		if task.Kind == "evidence_capture" {
			continue
		}
		targets = append(targets, task.ID)
	}
	if len(targets) == 0 || n <= 0 {
		return nil
	}

	events := make([]answerEvent, 0, n)
	for i := 0; i < n; i++ {
		text := answerPool[randomInt(len(answerPool))]
		if i%emptyAnswerEvery == emptyAnswerEvery-1 {
			text = ""
		}
		events = append(events, answerEvent{
			EventID: uuid.New().String(),
			TaskID:  targets[i%len(targets)],
			Text:    text,
		})
	}
	return events
}

// appendReplays appends copies of events sampled from the first half of the
// list, so every original is long applied before its replay arrives even
// with a full worker pool in flight.
func appendReplays(events []generatedEvent, n int) []generatedEvent {
	if len(events) == 0 || n <= 0 {
		return events
	}
	half := len(events) / 2
	if half == 0 {
		half = 1
	}
	for i := 0; i < n; i++ {
		events = append(events, events[randomInt(half)])
	}
	return events
}

// generateLearners builds a mixed roster: engaged readers, steady readers,
// skimmers, and erratic outliers, so flag reconciliation and both scoring
// policies see varied input.
func generateLearners(n int) []seedLearner {
	learners := make([]seedLearner, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("sim-%04d-%s", i, uuid.New().String()[:8])
		learners = append(learners, learnerForProfile(name, randomInt(profileCount)))
	}
	return learners
}

func learnerForProfile(name string, profile int) seedLearner {
	switch profile {
	case caseEngaged:
		return seedLearner{
			Name:         name,
			DwellMs:      int64(engagedDwellMin + randomInt(engagedDwellRange)),
			Interactions: engagedInteractionsMin + randomInt(engagedInteractionsRange),
			Tier:         "strong",
			Answer:       answerPool[0],
		}
	case caseSteady:
		return seedLearner{
			Name:         name,
			DwellMs:      int64(steadyDwellMin + randomInt(steadyDwellRange)),
			Interactions: steadyInteractionsMin + randomInt(steadyInteractionsRange),
			Tier:         "medium",
			Answer:       answerPool[2],
		}
	case caseSkimmer:
		return seedLearner{
			Name:         name,
			DwellMs:      int64(skimmerDwellMin + randomInt(skimmerDwellRange)),
			Interactions: randomInt(skimmerInteractionsRange),
			Tier:         "weak",
			Answer:       answerPool[4],
		}
	default:
		return seedLearner{
			Name:         name,
			DwellMs:      int64(erraticDwellMin + randomInt(erraticDwellRange)),
			Interactions: randomInt(erraticInteractionsRange),
			Tier:         tiers[randomInt(len(tiers))],
			Answer:       answerPool[randomInt(len(answerPool))],
		}
	}
}
