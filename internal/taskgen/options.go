package taskgen

import (
	"net/http"
	"strings"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithBackend sets the question backend.
func WithBackend(b Backend) Option {
	return func(g *Generator) {
		if b != nil {
			g.backend = b
		}
	}
}

// WithMaxWords sets the chunk window size in words.
func WithMaxWords(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxWords = n
		}
	}
}

// WithMaxQuestions sets how many questions to keep per chunk.
func WithMaxQuestions(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxQuestions = n
		}
	}
}

// BackendOption applies a configuration option to the LMStudioBackend.
type BackendOption func(*LMStudioBackend)

// WithBaseURL sets the completions server address.
func WithBaseURL(url string) BackendOption {
	return func(b *LMStudioBackend) {
		if url != "" {
			b.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel sets the model name sent with each completion request.
func WithModel(model string) BackendOption {
	return func(b *LMStudioBackend) {
		if model != "" {
			b.model = model
		}
	}
}

// WithHTTPClient sets the HTTP client used for completion calls.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *LMStudioBackend) {
		if c != nil {
			b.client = c
		}
	}
}
