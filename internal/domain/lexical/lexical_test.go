package lexical_test

import (
	"strings"
	"testing"

	lexical "github.com/seluk/margo/internal/domain/lexical"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTokenize(t *testing.T) {
	Convey("Given the tokenizer", t, func() {
		Convey("When tokenizing mixed-case text with punctuation", func() {
			set := lexical.Tokenize("The cat sat. THE dog ran!")

			Convey("Then tokens should be lowercased and deduplicated", func() {
				So(set, ShouldContainKey, "the")
				So(set, ShouldContainKey, "cat")
				So(set, ShouldContainKey, "dog")
				So(set, ShouldContainKey, "ran")
				So(len(set), ShouldEqual, 5) // the, cat, sat, dog, ran
			})
		})

		Convey("When tokenizing digits and separators", func() {
			set := lexical.Tokenize("page-12, line_3")

			Convey("Then alphanumeric runs should survive as tokens", func() {
				So(set, ShouldContainKey, "page")
				So(set, ShouldContainKey, "12")
				So(set, ShouldContainKey, "line")
				So(set, ShouldContainKey, "3")
			})
		})

		Convey("When tokenizing non-ASCII letters", func() {
			set := lexical.Tokenize("café")

			Convey("Then characters outside [a-z0-9] should split tokens", func() {
				So(set, ShouldContainKey, "caf")
				So(len(set), ShouldEqual, 1)
			})
		})

		Convey("When tokenizing blank input", func() {
			So(len(lexical.Tokenize("")), ShouldEqual, 0)
			So(len(lexical.Tokenize("  \t\n ")), ShouldEqual, 0)
			So(len(lexical.Tokenize("!?.,;")), ShouldEqual, 0)
		})
	})
}

func TestJaccard(t *testing.T) {
	Convey("Given the Jaccard similarity", t, func() {
		Convey("When comparing a non-empty text with itself", func() {
			So(lexical.Jaccard("the cat sat", "the cat sat"), ShouldEqual, 1.0)
		})

		Convey("When swapping the arguments", func() {
			a := "the quick brown fox"
			b := "a quick red fox"
			So(lexical.Jaccard(a, b), ShouldEqual, lexical.Jaccard(b, a))
		})

		Convey("When both inputs tokenize to nothing", func() {
			So(lexical.Jaccard("", ""), ShouldEqual, 0.0)
			So(lexical.Jaccard("...", "!!!"), ShouldEqual, 0.0)
		})

		Convey("When only one input is empty", func() {
			So(lexical.Jaccard("words here", ""), ShouldEqual, 0.0)
		})

		Convey("When the inputs partially overlap", func() {
			// tokens: {the, cat} vs {the, dog}; intersection 1, union 3.
			So(lexical.Jaccard("the cat", "the dog"), ShouldAlmostEqual, 1.0/3.0, 1e-12)
		})

		Convey("When punctuation and case differ", func() {
			So(lexical.Jaccard("Dog, ran!", "dog ran"), ShouldEqual, 1.0)
		})

		Convey("When duplicates appear", func() {
			// Sets collapse duplicates, so repetition must not change the score.
			So(lexical.Jaccard("cat cat cat", "cat"), ShouldEqual, 1.0)
		})
	})
}

func TestFluency(t *testing.T) {
	Convey("Given the fluency heuristic", t, func() {
		Convey("When the text is empty", func() {
			So(lexical.Fluency(""), ShouldEqual, 0.0)
		})

		Convey("When the text is 100 runes with one sentence mark", func() {
			text := strings.Repeat("x", 99) + "."
			// (100/200) * (1/2) = 0.25
			So(lexical.Fluency(text), ShouldAlmostEqual, 0.25, 1e-12)
		})

		Convey("When the text has no sentence marks", func() {
			// The mark count floors at one.
			text := strings.Repeat("x", 100)
			So(lexical.Fluency(text), ShouldAlmostEqual, 0.25, 1e-12)
		})

		Convey("When length grows with marks fixed", func() {
			short := strings.Repeat("x", 49) + "."
			long := strings.Repeat("x", 149) + "."

			Convey("Then fluency should not decrease", func() {
				So(lexical.Fluency(long), ShouldBeGreaterThan, lexical.Fluency(short))
			})
		})

		Convey("When the text is long and well punctuated", func() {
			text := strings.Repeat("A solid sentence. ", 40)

			Convey("Then fluency should saturate at one", func() {
				So(lexical.Fluency(text), ShouldEqual, 1.0)
			})
		})

		Convey("When counting multi-byte runes", func() {
			// 100 two-byte runes must count as 100, not 200.
			text := strings.Repeat("é", 100)
			So(lexical.Fluency(text), ShouldAlmostEqual, 0.25, 1e-12)
		})
	})
}
