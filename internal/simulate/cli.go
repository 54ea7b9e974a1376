package simulate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/seluk/margo/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(level, logFile string) error {
	if err := logger.Init(level); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "session_sim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the session simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Margo Session Simulator
=======================

A concurrent harness that replays reading gestures against a running margo
service: it seeds a learner roster, submits selection and answer events,
waits for the capture pipeline to drain, enables skim detection, runs both
scoring policies, and verifies the read model.

Usage:
  go run cmd/session-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -learners int
        Number of learners to seed (default 12)
  -selections int
        Number of selection events to submit (default 200)
  -answers int
        Number of answer events to submit (default 50)
  -replays int
        Number of events replayed to exercise idempotency (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated events (default: session_events_TIMESTAMP.json)
  -log string
        Log file for run output (default: session_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/session-sim/main.go

  # Heavier run against a remote service
  go run cmd/session-sim/main.go -selections 5000 -answers 1000 -workers 16 -url http://margo:8080

  # Deterministic replay file location
  go run cmd/session-sim/main.go -output runs/events.json -log runs/sim.log
`)
}
