// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep the struct flat with koanf tags; Load layers defaults, file, env.
// - New builds a Config populated with defaults only.
// - External errors must be wrapped via this package's sentinels.
package config

import (
	"fmt"

	"github.com/seluk/margo/internal/domain/model"
)

// TaskSpec is the file/env shape of one session task. Kind must be one of
// the model.TaskKind values; Load rejects anything else.
type TaskSpec struct {
	ID     string `koanf:"id"`
	Kind   string `koanf:"kind"`
	Prompt string `koanf:"prompt"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DocumentPath points at the passage source (.txt, .md, or .pdf).
	// Empty selects the embedded sample passage.
	DocumentPath string `koanf:"document_path"`

	// QueueSize bounds the in-memory capture-event queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the idempotency filter.
	DedupeSize int `koanf:"dedupe_size"`

	// DwellTickMs sets the dwell accumulator cadence.
	DwellTickMs int `koanf:"dwell_tick_ms"`

	// MaxEvidenceLimit caps GET /evidence?limit.
	MaxEvidenceLimit int `koanf:"max_evidence_limit"`

	// DetectionCapability and DetectionMode are the two skim-detection
	// switches; demo flags appear only while both are on.
	DetectionCapability bool `koanf:"detection_capability"`
	DetectionMode       bool `koanf:"detection_mode"`

	// SkimMinDwellMs, SkimMinInteractions, and SkimGraceRatio bound the
	// suspect selection when detection is active.
	SkimMinDwellMs      int64   `koanf:"skim_min_dwell_ms"`
	SkimMinInteractions int     `koanf:"skim_min_interactions"`
	SkimGraceRatio      float64 `koanf:"skim_grace_ratio"`

	// ArchivePath names the SQLite scoring archive. Empty disables archiving.
	ArchivePath string `koanf:"archive_path"`

	// Tasks is the fixed task list every session starts with.
	Tasks []TaskSpec `koanf:"tasks"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		DocumentPath:        "",
		QueueSize:           65_536,
		DedupeSize:          100_000,
		DwellTickMs:         1000,
		MaxEvidenceLimit:    500,
		DetectionCapability: false,
		DetectionMode:       false,
		SkimMinDwellMs:      30_000,
		SkimMinInteractions: 3,
		SkimGraceRatio:      0.5,
		ArchivePath:         "",
		Tasks: []TaskSpec{
			{
				ID:     "t1",
				Kind:   string(model.TaskEvidenceCapture),
				Prompt: "Highlight the sentence that best supports the main idea.",
			},
			{
				ID:     "t2",
				Kind:   string(model.TaskShortAnswer),
				Prompt: "In your own words, what is the passage mainly about?",
			},
			{
				ID:     "t3",
				Kind:   string(model.TaskDefinition),
				Prompt: "Define the most important term in the passage as it is used there.",
			},
		},
	}
	return c
}

// SkimThresholds bundles the skim fields into their domain shape.
func (c *Config) SkimThresholds() model.SkimThresholds {
	return model.SkimThresholds{
		MinDwellMs:      c.SkimMinDwellMs,
		MinInteractions: c.SkimMinInteractions,
		GraceRatio:      c.SkimGraceRatio,
	}
}

// Switches bundles the detection booleans into their domain shape.
func (c *Config) Switches() model.DetectionSwitches {
	return model.DetectionSwitches{
		Capability: c.DetectionCapability,
		Mode:       c.DetectionMode,
	}
}

// TaskList converts the configured task specs into domain tasks, rejecting
// empty or duplicate ids and unknown kinds.
func (c *Config) TaskList() ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(c.Tasks))
	seen := make(map[string]struct{}, len(c.Tasks))
	for _, spec := range c.Tasks {
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: task with empty id", ErrInvalidConfig)
		}
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate task id %q", ErrInvalidConfig, spec.ID)
		}
		kind := model.TaskKind(spec.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown task kind %q", ErrInvalidConfig, spec.Kind)
		}
		seen[spec.ID] = struct{}{}
		tasks = append(tasks, model.Task{ID: spec.ID, Kind: kind, Prompt: spec.Prompt})
	}
	return tasks, nil
}
