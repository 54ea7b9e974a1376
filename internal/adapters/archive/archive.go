// Package archive persists scoring runs to SQLite. The service only ever
// writes; the read methods exist for offline inspection and tests.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scoring_runs (
    id INTEGER PRIMARY KEY,
    policy TEXT NOT NULL,
    scored_at TEXT NOT NULL,
    learner_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scored_learners (
    id INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    score INTEGER NOT NULL,
    total REAL NOT NULL,
    feedback TEXT NOT NULL,
    flagged INTEGER NOT NULL,
    rubric TEXT NOT NULL
);
`

// RunSummary is one archived scoring run.
type RunSummary struct {
	ID           int64     `json:"id"`
	Policy       string    `json:"policy"`
	ScoredAt     time.Time `json:"scored_at"`
	LearnerCount int       `json:"learner_count"`
}

// ScoredLearner is one archived learner row of a run.
type ScoredLearner struct {
	Name     string                `json:"name"`
	Score    int                   `json:"score"`
	Total    float64               `json:"total"`
	Feedback string                `json:"feedback"`
	Flagged  bool                  `json:"flagged"`
	Rubric   model.RubricBreakdown `json:"rubric"`
}

// Archive records scoring runs in a SQLite file.
type Archive struct {
	db  *sql.DB
	log logger.Logger
}

// Open creates or opens the archive at path and applies the schema.
func Open(path string, opts ...Option) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}

	a := &Archive{
		db:  db,
		log: logger.Get().Named("archive"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RecordRun stores one scoring run: a run row plus one row per assessed
// learner. Learners without an assessment are not part of the run.
func (a *Archive) RecordRun(ctx context.Context, policy string, learners []model.LearnerRecord) (int64, error) {
	scored := make([]model.LearnerRecord, 0, len(learners))
	for _, rec := range learners {
		if rec.Assessment != nil {
			scored = append(scored, rec)
		}
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordArchiveError()
		return 0, fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scoring_runs(policy, scored_at, learner_count) VALUES(?,?,?)`,
		policy, time.Now().UTC().Format(time.RFC3339Nano), len(scored))
	if err != nil {
		metrics.RecordArchiveError()
		return 0, fmt.Errorf("insert scoring run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		metrics.RecordArchiveError()
		return 0, fmt.Errorf("scoring run id: %w", err)
	}

	for _, rec := range scored {
		rubric, err := json.Marshal(rec.Assessment.Breakdown)
		if err != nil {
			metrics.RecordArchiveError()
			return 0, fmt.Errorf("marshal rubric for %q: %w", rec.Name, err)
		}
		flagged := 0
		if rec.Flag != nil {
			flagged = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scored_learners(run_id, name, score, total, feedback, flagged, rubric) VALUES(?,?,?,?,?,?,?)`,
			runID, rec.Name, rec.Assessment.Score, rec.Assessment.Breakdown.Total,
			rec.Assessment.Feedback, flagged, string(rubric)); err != nil {
			metrics.RecordArchiveError()
			return 0, fmt.Errorf("insert scored learner %q: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordArchiveError()
		return 0, fmt.Errorf("commit archive tx: %w", err)
	}

	metrics.RecordArchiveWrite()
	a.log.Debug(ctx, "scoring run archived",
		logger.Int64("run_id", runID),
		logger.String("policy", policy),
		logger.Int("learners", len(scored)))
	return runID, nil
}

// Runs lists archived runs, newest first.
func (a *Archive) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, policy, scored_at, learner_count FROM scoring_runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query scoring runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var (
			run      RunSummary
			scoredAt string
		)
		if err := rows.Scan(&run.ID, &run.Policy, &scoredAt, &run.LearnerCount); err != nil {
			return nil, fmt.Errorf("scan scoring run: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, scoredAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		run.ScoredAt = ts
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scoring runs: %w", err)
	}
	return out, nil
}

// Learners lists the scored learner rows of one run in insertion order.
func (a *Archive) Learners(ctx context.Context, runID int64) ([]ScoredLearner, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT name, score, total, feedback, flagged, rubric FROM scored_learners WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query scored learners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ScoredLearner
	for rows.Next() {
		var (
			rec     ScoredLearner
			flagged int
			rubric  string
		)
		if err := rows.Scan(&rec.Name, &rec.Score, &rec.Total, &rec.Feedback, &flagged, &rubric); err != nil {
			return nil, fmt.Errorf("scan scored learner: %w", err)
		}
		if err := json.Unmarshal([]byte(rubric), &rec.Rubric); err != nil {
			return nil, fmt.Errorf("unmarshal rubric for %q: %w", rec.Name, err)
		}
		rec.Flagged = flagged != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scored learners: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
