// Package doc models the reading source as an ordered sequence of text runs
// and resolves rendered selections to canonical offsets in the document
// string. Run order mirrors the renderer's depth-first traversal, so a
// forward selection always meets its start run before its end run.
package doc

import (
	"strings"
	"unicode/utf8"
)

// Selections whose text trims below this many runes are degenerate and
// resolve to nothing.
const minSelectionRunes = 3

// Run is one text-bearing node of the rendered document. Refs are unique
// within a document; the first run carrying a ref wins.
type Run struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

// Selection describes a highlight gesture: run-local byte offsets at both
// ends plus the text the renderer saw.
type Selection struct {
	StartRef    string
	StartOffset int
	EndRef      string
	EndOffset   int
	Text        string
}

// Document is the immutable reading source. Its text is the concatenation
// of the run texts with nothing added between them, so run-local offsets
// translate to document offsets by accumulating run lengths.
type Document struct {
	runs []Run
	text string
}

// New builds a document from runs in render order.
func New(runs []Run) *Document {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	copied := make([]Run, len(runs))
	copy(copied, runs)
	return &Document{runs: copied, text: b.String()}
}

// FromText wraps a plain string as a single-run document with ref "r0".
func FromText(text string) *Document {
	return New([]Run{{Ref: "r0", Text: text}})
}

// Text returns the full document string.
func (d *Document) Text() string {
	return d.text
}

// Len returns the document length in bytes.
func (d *Document) Len() int {
	return len(d.text)
}

// Runs returns a copy of the run table.
func (d *Document) Runs() []Run {
	out := make([]Run, len(d.runs))
	copy(out, d.runs)
	return out
}

// Slice returns the document text between start and end, or the empty
// string when the range is invalid.
func (d *Document) Slice(start, end int) string {
	if start < 0 || end > len(d.text) || start >= end {
		return ""
	}
	return d.text[start:end]
}

// Resolve maps a selection to global [start, end) offsets.
//
// It walks the runs once, accumulating lengths: the start run fixes
// globalStart, the walk continues without resetting, and the end run fixes
// globalEnd and stops the walk early. A selection whose end run appears
// before its start run, whose refs never match, whose offsets leave the
// document, or whose text trims below the minimum resolves to ok=false;
// these are routine renderer artifacts, not errors.
func (d *Document) Resolve(sel Selection) (start, end int, ok bool) {
	if utf8.RuneCountInString(strings.TrimSpace(sel.Text)) < minSelectionRunes {
		return 0, 0, false
	}

	running := 0
	start, end = -1, -1
	for _, run := range d.runs {
		if run.Ref == sel.StartRef {
			start = running + sel.StartOffset
		}
		if run.Ref == sel.EndRef {
			if start < 0 {
				return 0, 0, false
			}
			end = running + sel.EndOffset
			break
		}
		running += len(run.Text)
	}

	if start < 0 || end < 0 || end > len(d.text) || end <= start {
		return 0, 0, false
	}
	return start, end, true
}
