package taskgen

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seluk/margo/internal/domain/model"
)

// WriteJSON saves the question sheet as an indented JSON array.
func WriteJSON(questions []Question, path string) error {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write questions json: %w", err)
	}
	return nil
}

// WriteCSV saves the question sheet as CSV. List columns are joined with
// "; " so a row stays one line in spreadsheet tools.
func WriteCSV(questions []Question, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"chunk_idx", "question", "summary", "keywords", "entities"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, q := range questions {
		record := []string{
			strconv.Itoa(q.ChunkIndex),
			q.Question,
			q.Summary,
			strings.Join(q.Keywords, "; "),
			strings.Join(q.Entities, "; "),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write questions csv: %w", err)
	}
	return nil
}

// taskSpec is the config-file shape of one task, matching the service's
// MARGO_CONFIG task entries.
type taskSpec struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Prompt string `json:"prompt"`
}

// WriteTaskConfig saves a task list as a config snippet the service loads
// through MARGO_CONFIG. JSON is valid YAML, so the file feeds the YAML
// config parser as-is.
func WriteTaskConfig(tasks []model.Task, path string) error {
	specs := make([]taskSpec, 0, len(tasks))
	for _, t := range tasks {
		specs = append(specs, taskSpec{ID: t.ID, Kind: string(t.Kind), Prompt: t.Prompt})
	}
	data, err := json.MarshalIndent(map[string][]taskSpec{"tasks": specs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write task config: %w", err)
	}
	return nil
}
