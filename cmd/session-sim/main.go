package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/seluk/margo/internal/simulate"
)

// Default configuration constants.
const (
	defaultLearners   = 12
	defaultSelections = 200
	defaultAnswers    = 50
	defaultReplays    = 20
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		learners   = flag.Int("learners", defaultLearners, "Number of learners to seed")
		selections = flag.Int("selections", defaultSelections, "Number of selection events to generate")
		answers    = flag.Int("answers", defaultAnswers, "Number of answer events to generate")
		replays    = flag.Int("replays", defaultReplays, "Number of events replayed to exercise idempotency")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated events (default: session_events_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: session_sim_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := simulate.SetupLogging(level, *logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulate.Config{
		BaseURL:    *baseURL,
		Learners:   *learners,
		Selections: *selections,
		Answers:    *answers,
		Replays:    *replays,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the simulation
	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
