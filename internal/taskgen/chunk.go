package taskgen

import (
	"strings"
)

// summarySentences is how many leading sentences form a chunk summary.
const summarySentences = 3

// ChunkText splits the passage into consecutive windows of at most maxWords
// words and derives each window's metadata. A maxWords of zero or less
// falls back to the default.
func ChunkText(text string, maxWords int) []Chunk {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(words)/maxWords+1)
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunkText := strings.Join(words[start:end], " ")
		chunks = append(chunks, Chunk{
			Index:    len(chunks) + 1,
			Text:     chunkText,
			Summary:  summarize(chunkText),
			Keywords: Keywords(chunkText),
			Entities: Entities(chunkText),
		})
	}
	return chunks
}

func summarize(text string) string {
	sents := sentences(text)
	if len(sents) > summarySentences {
		sents = sents[:summarySentences]
	}
	return strings.Join(sents, " ")
}

// sentences splits text at spaces that follow a sentence terminator, so
// abbreviations and decimals like "3.14" stay intact.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
