// Package ingest loads the reading passage from plain text, Markdown, or
// PDF and shapes it into the document the session serves. Extracted text is
// cleaned first: leading/trailing whitespace per line, blank lines, and
// standalone page-number artifacts are dropped.
package ingest

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/seluk/margo/internal/domain/doc"
)

//go:embed sample.txt
var sampleText string

// pageArtifact matches lines like "Page 3" that PDF extraction leaves behind.
var pageArtifact = regexp.MustCompile(`(?i)^page\s*\d+$`)

// Load reads the passage at path and builds the session document. The
// extension picks the parser; an empty path yields the embedded sample
// passage.
func Load(ctx context.Context, path string) (*doc.Document, error) {
	if path == "" {
		return Sample()
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text", ".md", ".markdown":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		return FromText(string(raw))
	case ".pdf":
		text, err := extractPDF(ctx, path)
		if err != nil {
			return nil, err
		}
		return FromText(text)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Sample builds the embedded fallback passage.
func Sample() (*doc.Document, error) {
	return FromText(sampleText)
}

// FromText cleans raw text and shapes it into a document with one run per
// line. Every run except the last keeps its trailing newline, so the
// document string is exactly the cleaned text and run-local offsets stay
// byte-accurate.
func FromText(raw string) (*doc.Document, error) {
	cleaned := cleanText(raw)
	if cleaned == "" {
		return nil, ErrNoText
	}

	lines := strings.Split(cleaned, "\n")
	runs := make([]doc.Run, len(lines))
	for i, line := range lines {
		text := line
		if i < len(lines)-1 {
			text += "\n"
		}
		runs[i] = doc.Run{Ref: fmt.Sprintf("r%d", i), Text: text}
	}
	return doc.New(runs), nil
}

func cleanText(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || pageArtifact.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func extractPDF(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			// Pages that fail extraction are skipped, not fatal.
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return b.String(), nil
}
