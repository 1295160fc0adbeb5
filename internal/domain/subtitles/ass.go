package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/narrate/internal/types"
)

const (
	styleDialogue  = "Dialogue"
	styleNarration = "Narration"

	// lineBudget is the rune width of one subtitle line.
	lineBudget = 24
)

// RenderASS builds a subtitle track for the merged audio: one event per
// placed clip, carrying the text of the segment with the same sequence.
// Placements with no matching segment are skipped.
func RenderASS(placements []types.ClipPlacement, segs []types.Segment) string {
	bySeq := make(map[int]types.Segment, len(segs))
	for _, s := range segs {
		bySeq[s.Sequence] = s
	}

	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, p := range placements {
		s, ok := bySeq[p.Sequence]
		if !ok {
			continue
		}
		text := sanitizeASS(s.Text)
		if text == "" {
			continue
		}
		style := styleNarration
		if s.IsDialogue() {
			style = styleDialogue
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			assTime(p.Start), assTime(p.End), style, strings.Join(wrap(text, lineBudget), `\N`))
	}
	return b.String()
}

// wrap packs runes into lines of at most budget, preferring to break
// right after a space or punctuation mark in the second half of a line.
func wrap(s string, budget int) []string {
	rs := []rune(s)
	var out []string
	for len(rs) > budget {
		cut := budget
		for i := budget; i > budget/2; i-- {
			if isBreak(rs[i-1]) {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(rs[:cut])))
		rs = []rune(strings.TrimLeft(string(rs[cut:]), " "))
	}
	if len(rs) > 0 {
		out = append(out, string(rs))
	}
	return out
}

func isBreak(r rune) bool {
	return strings.ContainsRune(" ，,、。！？!?；;：:…", r)
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1280
PlayResY: 720
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Dialogue, Noto Sans CJK SC, 48, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,3,1,2, 60,60,60,1
Style: Narration, Noto Sans CJK SC, 44, &H00C8C8C8, &H00FFD200, &H00000000, &H64000000, 0,1,0,0,100,100,0,0,1,3,1,2, 60,60,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
