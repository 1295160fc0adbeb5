package dialogue

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/narrate/internal/domain/segments"
	"github.com/forPelevin/narrate/internal/domain/text"
	"github.com/forPelevin/narrate/internal/types"
)

const quoteChars = "“\"「『”」』"

var (
	reQuote = regexp.MustCompile(`[“"「『].+?[”"」』]`)
	reColon = regexp.MustCompile(`[:：]`)
)

// Match is a dialogue span inside a sentence, in sentence-local rune offsets.
type Match struct {
	Range Range
	Text  string
	Rule  types.Rule
}

// Analysis is the per-sentence result before it becomes segments.
type Analysis struct {
	Dialogue []Match
	// Residual holds the sentence-local ranges left after removing the
	// dialogue ranges. It is the whole sentence when nothing matched.
	Residual  Ranges
	Narration string
}

// Analyze applies the quote rule, falls back to the colon rule only when
// the sentence has no quoted span, and derives the narration residual.
func Analyze(sentence string) Analysis {
	var a Analysis
	if locs := reQuote.FindAllStringIndex(sentence, -1); len(locs) > 0 {
		for _, loc := range locs {
			content := strings.TrimSpace(stripQuotes(sentence[loc[0]:loc[1]]))
			if content == "" {
				continue
			}
			a.Dialogue = append(a.Dialogue, Match{
				Range: runeRange(sentence, loc[0], loc[1]),
				Text:  content,
				Rule:  types.RuleQuote,
			})
		}
	} else if loc := reColon.FindStringIndex(sentence); loc != nil && loc[1] < len(sentence) {
		if content := strings.TrimSpace(sentence[loc[1]:]); content != "" {
			a.Dialogue = append(a.Dialogue, Match{
				Range: runeRange(sentence, loc[1], len(sentence)),
				Text:  content,
				Rule:  types.RuleColon,
			})
		}
	}

	runes := []rune(sentence)
	whole := Range{Start: 0, End: len(runes)}
	if len(a.Dialogue) == 0 {
		a.Residual = Ranges{whole}
		a.Narration = strings.TrimSpace(sentence)
		return a
	}

	cut := make(Ranges, 0, len(a.Dialogue))
	for _, m := range a.Dialogue {
		cut = append(cut, m.Range)
	}
	a.Residual = Subtract(whole, cut)

	var b strings.Builder
	for _, r := range a.Residual {
		b.WriteString(string(runes[r.Start:r.End]))
	}
	a.Narration = strings.Join(strings.Fields(b.String()), " ")
	return a
}

// Extract turns one sentence into its dialogue segments followed by at most
// one narration segment. Offsets are absolute; sequence numbers are unset.
func Extract(s text.Sentence) []types.Segment {
	a := Analyze(s.Text)
	out := make([]types.Segment, 0, len(a.Dialogue)+1)
	for _, m := range a.Dialogue {
		out = append(out, types.Segment{
			Kind:         types.KindDialogue,
			Text:         m.Text,
			EmotionHint:  m.Text,
			Rule:         m.Rule,
			SourceOffset: s.Start + m.Range.Start,
		})
	}
	if a.Narration != "" {
		out = append(out, types.Segment{
			Kind:         types.KindNarration,
			Text:         a.Narration,
			EmotionHint:  a.Narration,
			Rule:         types.RulePerSentence,
			SourceOffset: s.Start,
		})
	}
	return out
}

// ExtractAll segments a whole document. It never fails; text without any
// sentence content yields an empty list.
func ExtractAll(raw string) []types.Segment {
	var segs []types.Segment
	for s := range text.Sentences(text.Normalize(raw)) {
		segs = append(segs, Extract(s)...)
	}
	return segments.Sequence(segs)
}

func stripQuotes(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(quoteChars, r) {
			return -1
		}
		return r
	}, s)
}

func runeRange(s string, startByte, endByte int) Range {
	start := utf8.RuneCountInString(s[:startByte])
	return Range{Start: start, End: start + utf8.RuneCountInString(s[startByte:endByte])}
}
