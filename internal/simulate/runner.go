package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/seluk/margo/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Drain polling constants. Capture is asynchronous, so the runner polls the
// read model until the counters stop moving instead of sleeping blind.
const (
	drainPollInterval = 250 * time.Millisecond
	drainStableChecks = 3
	drainDeadline     = 30 * time.Second
)

const percentageMultiplier = 100

// Run executes the complete session simulation: seed a roster, replay
// reading gestures, wait for the pipeline to drain, turn detection on, run
// both scoring policies, and verify what the read model reports.
func Run(ctx context.Context, config *Config) error {
	report := &Report{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting session simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("learners", config.Learners),
		logger.Int("selections", config.Selections),
		logger.Int("answers", config.Answers),
		logger.Int("replays", config.Replays),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	client := newHTTPClient(config.Timeout)

	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	var document documentView
	if err := fetchJSON(ctx, client, config.BaseURL+"/document", &document); err != nil {
		return fmt.Errorf("document fetch failed: %w", err)
	}
	var before progressView
	if err := fetchJSON(ctx, client, config.BaseURL+"/progress", &before); err != nil {
		return fmt.Errorf("progress fetch failed: %w", err)
	}
	logger.Get().Info(ctx, "session loaded",
		logger.Int("document_bytes", len(document.Text)),
		logger.Int("runs", len(document.Runs)),
		logger.Int("tasks", len(before.Tasks)))

	if err := seedRoster(ctx, client, config, report); err != nil {
		return fmt.Errorf("learner seeding failed: %w", err)
	}

	events := generateEvents(document, before, config, report)
	logger.Get().Info(ctx, "generated events", logger.Int("count", len(events)))

	if err := submitEvents(ctx, config, events, report); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	after, err := waitForDrain(ctx, client, config)
	if err != nil {
		return fmt.Errorf("drain wait failed: %w", err)
	}
	report.SpansCaptured = after.SpanCount
	report.PercentComplete = after.Percent

	flags, err := enableDetection(ctx, client, config)
	if err != nil {
		return fmt.Errorf("detection toggle failed: %w", err)
	}
	report.FlaggedLearners = len(flags.Flags)

	runs, err := scoreRoster(ctx, client, config)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}
	if len(runs) > 0 {
		report.ScoredLearners = len(runs[len(runs)-1].Learners)
	}

	if err := verifyOutcome(config, before, after, flags, runs, report); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if err := saveEventsToFile(ctx, config, events); err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	displayFinalReport(report)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// seedRoster posts the generated learners one by one; roster writes are
// cheap and sequential seeding keeps failures attributable.
func seedRoster(ctx context.Context, client *HTTPClient, config *Config, report *Report) error {
	for _, learner := range generateLearners(config.Learners) {
		resp, err := client.Post(ctx, config.BaseURL+"/learners", learner)
		if err != nil {
			return fmt.Errorf("seed %s: %w", learner.Name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("seed %s: unexpected status %d", learner.Name, resp.StatusCode)
		}
		report.LearnersSeeded++
	}

	logger.Get().Info(ctx, "seeded learners", logger.Int("count", report.LearnersSeeded))
	return nil
}

// waitForDrain polls the progress read model until span and interaction
// counters hold still for a few consecutive polls. On deadline it returns
// the last snapshot and lets verification judge it.
func waitForDrain(ctx context.Context, client *HTTPClient, config *Config) (progressView, error) {
	logger.Get().Info(ctx, "waiting for the event pipeline to drain")

	deadline := time.Now().Add(drainDeadline)
	var current progressView
	stable := 0
	prevSpans, prevInteractions := -1, -1

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return progressView{}, ctx.Err()
		case <-time.After(drainPollInterval):
		}

		if err := fetchJSON(ctx, client, config.BaseURL+"/progress", &current); err != nil {
			return progressView{}, err
		}
		if current.SpanCount == prevSpans && current.Interactions == prevInteractions {
			stable++
			if stable >= drainStableChecks {
				return current, nil
			}
			continue
		}
		stable = 0
		prevSpans, prevInteractions = current.SpanCount, current.Interactions
	}

	logger.Get().Warn(ctx, "drain deadline reached; continuing with the last snapshot")
	return current, nil
}

// enableDetection turns both switches on and returns the resulting report.
func enableDetection(ctx context.Context, client *HTTPClient, config *Config) (flagReport, error) {
	logger.Get().Info(ctx, "enabling skim detection")

	resp, err := client.Put(ctx, config.BaseURL+"/detection", map[string]bool{
		"capability": true,
		"mode":       true,
	})
	if err != nil {
		return flagReport{}, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return flagReport{}, fmt.Errorf("detection toggle returned status %d", resp.StatusCode)
	}

	var flags flagReport
	if err := decodeBody(resp, &flags); err != nil {
		return flagReport{}, err
	}
	return flags, nil
}

// scoreRoster runs both scoring policies back to back.
func scoreRoster(ctx context.Context, client *HTTPClient, config *Config) ([]scoringRun, error) {
	runs := make([]scoringRun, 0, 2)
	for _, path := range []string{"/scores/rule-based", "/scores/model-assisted"} {
		logger.Get().Info(ctx, "running scoring policy", logger.String("path", path))

		resp, err := client.Post(ctx, config.BaseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
		}

		var run scoringRun
		if err := decodeBody(resp, &run); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// verifyOutcome checks the read model against what the run submitted.
func verifyOutcome(config *Config, before, after progressView, flags flagReport, runs []scoringRun, report *Report) error {
	if report.EventsFailed > 0 {
		return fmt.Errorf("%d events failed to submit", report.EventsFailed)
	}
	if report.EventsAccepted == 0 {
		return errors.New("no events were accepted")
	}
	if config.Replays > 0 && report.EventsDuplicate != config.Replays {
		return fmt.Errorf("replayed %d events but observed %d duplicate acknowledgements",
			config.Replays, report.EventsDuplicate)
	}

	if config.Selections > 0 && after.SpanCount <= before.SpanCount {
		return fmt.Errorf("span count did not grow: before=%d after=%d", before.SpanCount, after.SpanCount)
	}
	for _, task := range after.Tasks {
		if task.Kind == "evidence_capture" && config.Selections > 0 && !task.Completed {
			return fmt.Errorf("task %s not completed despite %d captured spans", task.ID, after.SpanCount)
		}
	}

	if report.LearnersSeeded > 0 {
		if !flags.Active {
			return errors.New("detection switches did not report active")
		}
		if len(flags.Flags) != 1 || flags.Flags[0].Origin != "demo" {
			return fmt.Errorf("expected exactly one demo flag, got %d flags", len(flags.Flags))
		}
	}

	for _, run := range runs {
		for _, learner := range run.Learners {
			if learner.Assessment == nil {
				return fmt.Errorf("%s run left %s unscored", run.Policy, learner.Name)
			}
			if learner.Assessment.Score < 0 || learner.Assessment.Score > percentageMultiplier {
				return fmt.Errorf("%s run scored %s out of range: %d", run.Policy, learner.Name, learner.Assessment.Score)
			}
		}
	}
	return nil
}

func decodeBody(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// saveEventsToFile saves the generated events to a JSON file for replay.
func saveEventsToFile(ctx context.Context, config *Config, events []generatedEvent) error {
	if len(events) == 0 {
		return errors.New("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "session_events_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}
	for i, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %d: %w", i, err)
		}
		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("failed to write event %d: %w", i, err)
		}
		if i < len(events)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write separator: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}
	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalReport prints the final simulation statistics.
func displayFinalReport(report *Report) {
	var successRate, eventsPerSecond float64
	if report.EventsSubmitted > 0 {
		successRate = float64(report.EventsAccepted) / float64(report.EventsSubmitted) * percentageMultiplier
	}
	if report.Duration > 0 {
		eventsPerSecond = float64(report.EventsSubmitted) / report.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("learnersSeeded", report.LearnersSeeded),
		logger.Int("eventsGenerated", report.EventsGenerated),
		logger.Int("eventsSubmitted", report.EventsSubmitted),
		logger.Int("eventsAccepted", report.EventsAccepted),
		logger.Int("eventsDuplicate", report.EventsDuplicate),
		logger.Int("eventsFailed", report.EventsFailed),
		logger.Int("spansCaptured", report.SpansCaptured),
		logger.Float64("percentComplete", report.PercentComplete),
		logger.Int("flaggedLearners", report.FlaggedLearners),
		logger.Int("scoredLearners", report.ScoredLearners),
		logger.String("duration", report.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
