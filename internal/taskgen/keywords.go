package taskgen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxKeywords    = 12
	maxEntities    = 8
	minKeywordLen  = 4
	minEntityRunes = 2
)

// stopwords holds common English words excluded from keywords. Words of
// three characters or fewer are already dropped by the length filter.
var stopwords = map[string]struct{}{
	"that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {},
	"have": {}, "been": {}, "being": {}, "were": {}, "does": {}, "doing": {},
	"they": {}, "them": {}, "their": {}, "theirs": {}, "there": {}, "then": {},
	"than": {}, "what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"whom": {}, "will": {}, "would": {}, "could": {}, "should": {}, "must": {},
	"might": {}, "shall": {}, "about": {}, "after": {}, "before": {}, "between": {},
	"through": {}, "during": {}, "above": {}, "below": {}, "under": {}, "over": {},
	"into": {}, "onto": {}, "again": {}, "against": {}, "because": {}, "once": {},
	"here": {}, "each": {}, "other": {}, "some": {}, "such": {}, "only": {},
	"very": {}, "just": {}, "also": {}, "more": {}, "most": {}, "both": {},
	"same": {}, "even": {}, "ever": {}, "every": {}, "never": {}, "itself": {},
	"yours": {}, "your": {}, "ours": {}, "hers": {},
}

// Keywords extracts lowercase content words from text: punctuation trimmed,
// stopwords and short words dropped, deduplicated in first-seen order,
// capped at twelve.
func Keywords(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxKeywords)
	for _, raw := range strings.Fields(text) {
		w := strings.ToLower(trimWordPunct(raw))
		if utf8.RuneCountInString(w) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// Entities collects capitalized word runs as a rough stand-in for named
// entities. A run starting a sentence only counts when it spans more than
// one word, which keeps ordinary sentence openers out.
func Entities(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxEntities)
	for _, sent := range sentences(text) {
		words := strings.Fields(sent)
		i := 0
		for i < len(words) {
			w := trimWordPunct(words[i])
			if !isCapitalized(w) {
				i++
				continue
			}
			run := []string{w}
			j := i + 1
			for j < len(words) {
				next := trimWordPunct(words[j])
				if !isCapitalized(next) {
					break
				}
				run = append(run, next)
				j++
			}
			if keepEntityRun(run, i) {
				ent := strings.Join(run, " ")
				if _, dup := seen[ent]; !dup && len(out) < maxEntities {
					seen[ent] = struct{}{}
					out = append(out, ent)
				}
			}
			i = j
		}
	}
	return out
}

func keepEntityRun(run []string, startWord int) bool {
	if startWord == 0 && len(run) < 2 {
		return false
	}
	return utf8.RuneCountInString(strings.Join(run, " ")) >= minEntityRunes
}

func isCapitalized(w string) bool {
	r, size := utf8.DecodeRuneInString(w)
	if size == 0 || !unicode.IsUpper(r) {
		return false
	}
	for _, rest := range w[size:] {
		if !unicode.IsLetter(rest) {
			return false
		}
	}
	return true
}

func trimWordPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
