// Package taskgen turns a reading passage into session tasks offline. The
// pipeline chunks the text into word windows, derives summaries, keywords,
// and entities per chunk, asks a question backend for prompts, and exports
// the result as a task sheet or a servable task list.
package taskgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/seluk/margo/internal/domain/model"
)

const (
	defaultMaxWords     = 500
	defaultMaxQuestions = 3
)

// Chunk is one word window of the passage with its derived metadata.
type Chunk struct {
	Index    int      `json:"chunk_idx"`
	Text     string   `json:"text"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Entities []string `json:"entities"`
}

// Question ties one generated prompt back to the chunk it came from.
type Question struct {
	ChunkIndex int      `json:"chunk_idx"`
	Question   string   `json:"question"`
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
	Entities   []string `json:"entities"`
}

// Generator drives the chunk-and-generate pipeline.
type Generator struct {
	backend      Backend
	maxWords     int
	maxQuestions int
}

// NewGenerator creates a Generator. Without options it chunks at 500 words,
// asks for three questions per chunk, and generates offline through the
// heuristic backend.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		backend:      HeuristicBackend{},
		maxWords:     defaultMaxWords,
		maxQuestions: defaultMaxQuestions,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate chunks the passage and collects backend questions per chunk.
func (g *Generator) Generate(ctx context.Context, text string) ([]Question, error) {
	chunks := ChunkText(text, g.maxWords)
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}

	questions := make([]Question, 0, len(chunks)*g.maxQuestions)
	for _, c := range chunks {
		qs, err := g.backend.Generate(ctx, c, g.maxQuestions)
		if err != nil {
			return nil, fmt.Errorf("generate questions for chunk %d: %w", c.Index, err)
		}
		if len(qs) > g.maxQuestions {
			qs = qs[:g.maxQuestions]
		}
		for _, q := range qs {
			questions = append(questions, Question{
				ChunkIndex: c.Index,
				Question:   q,
				Summary:    c.Summary,
				Keywords:   c.Keywords,
				Entities:   c.Entities,
			})
		}
	}
	return questions, nil
}

// BuildTaskList generates questions for the passage and converts them into
// a servable task list.
func (g *Generator) BuildTaskList(ctx context.Context, text string) ([]model.Task, error) {
	questions, err := g.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	return TaskList(questions), nil
}

// TaskList turns a question sheet into a servable task list: one
// evidence-capture task followed by the questions as answer tasks. Prompts
// that ask for a definition become definition tasks.
func TaskList(questions []Question) []model.Task {
	tasks := make([]model.Task, 0, len(questions)+1)
	tasks = append(tasks, model.Task{
		ID:     "t1",
		Kind:   model.TaskEvidenceCapture,
		Prompt: "Highlight the sentence that best supports the main idea.",
	})
	for i, q := range questions {
		kind := model.TaskShortAnswer
		if low := strings.ToLower(q.Question); strings.HasPrefix(low, "define") || strings.Contains(low, "definition") {
			kind = model.TaskDefinition
		}
		tasks = append(tasks, model.Task{
			ID:     fmt.Sprintf("t%d", i+2),
			Kind:   kind,
			Prompt: q.Question,
		})
	}
	return tasks
}
