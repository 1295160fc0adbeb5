package text

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Terminators closes a sentence span; the terminator belongs to the span it closes.
const Terminators = "。！？….!?;；\n"

// Sentence is a half-open [Start, End) rune range of the normalized text.
type Sentence struct {
	Text  string
	Start int
	End   int
}

func IsTerminator(r rune) bool { return strings.ContainsRune(Terminators, r) }

// Spans yields every span of text in order, including whitespace-only ones.
// Concatenating the Text of all spans reproduces the input.
func Spans(text string) iter.Seq[Sentence] {
	return func(yield func(Sentence) bool) {
		startByte, startRune, pos := 0, 0, 0
		for i := 0; i < len(text); {
			r, size := utf8.DecodeRuneInString(text[i:])
			i += size
			pos++
			if !IsTerminator(r) {
				continue
			}
			if !yield(Sentence{Text: text[startByte:i], Start: startRune, End: pos}) {
				return
			}
			startByte, startRune = i, pos
		}
		if startByte < len(text) {
			yield(Sentence{Text: text[startByte:], Start: startRune, End: pos})
		}
	}
}

// Sentences is Spans without the spans whose trimmed text is empty.
// Each range over the returned sequence rescans text from the start.
func Sentences(text string) iter.Seq[Sentence] {
	return func(yield func(Sentence) bool) {
		for s := range Spans(text) {
			if strings.TrimSpace(s.Text) == "" {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

func SplitSentences(text string) []Sentence {
	var out []Sentence
	for s := range Sentences(text) {
		out = append(out, s)
	}
	return out
}
