package taskgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

const (
	defaultBaseURL = "http://localhost:1234"
	defaultModel   = "mistral-nemo-instruct-2407"

	completionsPath = "/v1/completions"
	maxNewTokens    = 512
	temperature     = 0.7
)

// questionPrompt is the instruction sent to the completion backend for one
// chunk. The numbered-list requirement is what parseNumbered relies on.
const questionPrompt = `You are an educational assistant generating questions.
Chunk summary: %s

Text content:
%s

Instructions:
- Generate up to %d clear educational questions.
- Number each question.`

// Backend abstracts the question generator so tests can supply a mock and
// the pipeline can run offline.
type Backend interface {
	Generate(ctx context.Context, c Chunk, maxQuestions int) ([]string, error)
}

// HeuristicBackend produces deterministic questions from chunk metadata
// without any model. It is the default backend and the fallback when no
// completion endpoint is reachable.
type HeuristicBackend struct{}

// Generate builds questions from the chunk's keywords and entities.
func (HeuristicBackend) Generate(_ context.Context, c Chunk, maxQuestions int) ([]string, error) {
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}

	qs := []string{"What is the main idea of this passage?"}
	for _, kw := range c.Keywords {
		qs = append(qs, fmt.Sprintf("What does the passage say about %s?", kw))
	}
	for _, ent := range c.Entities {
		qs = append(qs, fmt.Sprintf("Who or what is %s, according to the passage?", ent))
	}

	if len(qs) > maxQuestions {
		qs = qs[:maxQuestions]
	}
	return qs, nil
}

// LMStudioBackend generates questions through an OpenAI-compatible
// completions endpoint, the interface LM Studio exposes for local models.
type LMStudioBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewLMStudioBackend creates a backend against a local completions server.
func NewLMStudioBackend(opts ...BackendOption) *LMStudioBackend {
	b := &LMStudioBackend{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Generate renders the chunk prompt, calls the completions endpoint, and
// parses the numbered list out of the first choice.
func (b *LMStudioBackend) Generate(ctx context.Context, c Chunk, maxQuestions int) ([]string, error) {
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}

	body, err := json.Marshal(completionRequest{
		Model:       b.model,
		Prompt:      fmt.Sprintf(questionPrompt, c.Summary, c.Text, maxQuestions),
		MaxTokens:   maxNewTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call completion endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, string(detail))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	questions := parseNumbered(parsed.Choices[0].Text)
	if len(questions) == 0 {
		return nil, ErrEmptyCompletion
	}
	if len(questions) > maxQuestions {
		questions = questions[:maxQuestions]
	}
	return questions, nil
}

// listItem strips the "1." / "2)" prefix a numbered list carries per line.
var listItem = regexp.MustCompile(`^\s*\d+\s*[.)]?\s*`)

func parseNumbered(raw string) []string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(listItem.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
