// Package lexical provides the token-set similarity and fluency proxies
// used by the rubric engine. Both are deliberately crude: similarity is
// token overlap, fluency is a length/punctuation ratio.
package lexical

import "strings"

// Fluency constants. fluency = min(1, length/200 * marks/2) with a floor of
// one sentence mark; changing them changes every score.
const (
	fluencyLengthScale   = 200.0
	fluencySentenceScale = 2.0
)

// Tokenize lowercases text, replaces every character outside [a-z0-9] with a
// space, splits on whitespace runs, and returns the token set. Duplicates
// collapse, so the result is order-independent.
func Tokenize(text string) map[string]struct{} {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	set := make(map[string]struct{})
	for _, tok := range strings.Fields(b.String()) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / max(1, |A∪B|) over the token sets of a and b.
// The union floor makes two empty inputs score 0 rather than dividing by
// zero.
func Jaccard(a, b string) float64 {
	ta := Tokenize(a)
	tb := Tokenize(b)

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	if union < 1 {
		union = 1
	}
	return float64(intersection) / float64(union)
}

// Fluency scores text in [0,1] from its rune length and sentence marks.
// Non-decreasing in length until it saturates at 1.
func Fluency(text string) float64 {
	length := 0
	marks := 0
	for _, r := range text {
		length++
		if r == '.' || r == '!' || r == '?' {
			marks++
		}
	}
	if marks < 1 {
		marks = 1
	}

	f := (float64(length) / fluencyLengthScale) * (float64(marks) / fluencySentenceScale)
	if f > 1 {
		return 1
	}
	return f
}
