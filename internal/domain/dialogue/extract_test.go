package dialogue

import (
	"testing"

	"github.com/forPelevin/narrate/internal/domain/text"
	"github.com/forPelevin/narrate/internal/types"
)

type wantSeg struct {
	kind   types.Kind
	text   string
	offset int
	rule   types.Rule
}

func checkSegments(t *testing.T, got []types.Segment, want []wantSeg) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Sequence != i+1 {
			t.Fatalf("segment %d has seq %d", i, g.Sequence)
		}
		if g.Kind != w.kind || g.Text != w.text || g.SourceOffset != w.offset || g.Rule != w.rule {
			t.Fatalf("segment %d = {%s %q @%d %s}, want {%s %q @%d %s}",
				i, g.Kind, g.Text, g.SourceOffset, g.Rule, w.kind, w.text, w.offset, w.rule)
		}
		if g.EmotionHint != g.Text {
			t.Fatalf("segment %d emotion hint %q differs from text %q", i, g.EmotionHint, g.Text)
		}
	}
}

func TestExtractAll_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []wantSeg
	}{
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "colon without quotes",
			in:   "班长说: 集合！",
			want: []wantSeg{
				{types.KindNarration, "班长说:", 0, types.RulePerSentence},
				{types.KindDialogue, "集合！", 4, types.RuleColon},
			},
		},
		{
			name: "quote closed before terminator",
			in:   "他说：“你好”，她笑了。",
			want: []wantSeg{
				{types.KindNarration, "他说：，她笑了。", 0, types.RulePerSentence},
				{types.KindDialogue, "你好", 3, types.RuleQuote},
			},
		},
		{
			// The terminator inside the quotes closes the first sentence, so
			// the quote never closes there and the colon rule applies.
			name: "terminator inside quotes",
			in:   "他说：“你好。”她笑了。",
			want: []wantSeg{
				{types.KindNarration, "他说：", 0, types.RulePerSentence},
				{types.KindDialogue, "“你好。", 3, types.RuleColon},
				{types.KindNarration, "”她笑了。", 7, types.RulePerSentence},
			},
		},
		{
			name: "multiple quotes share one narration",
			in:   "“甲”他说“乙”。",
			want: []wantSeg{
				{types.KindDialogue, "甲", 0, types.RuleQuote},
				{types.KindNarration, "他说。", 0, types.RulePerSentence},
				{types.KindDialogue, "乙", 5, types.RuleQuote},
			},
		},
		{
			name: "straight quotes",
			in:   `He said "go" and "stop" twice.`,
			want: []wantSeg{
				{types.KindNarration, "He said and twice.", 0, types.RulePerSentence},
				{types.KindDialogue, "go", 8, types.RuleQuote},
				{types.KindDialogue, "stop", 17, types.RuleQuote},
			},
		},
		{
			name: "corner brackets",
			in:   "「走吧」『好』",
			want: []wantSeg{
				{types.KindDialogue, "走吧", 0, types.RuleQuote},
				{types.KindDialogue, "好", 4, types.RuleQuote},
			},
		},
		{
			name: "empty quote is skipped and stays in narration",
			in:   "“ ”他说：走。",
			want: []wantSeg{
				{types.KindNarration, "“ ”他说：走。", 0, types.RulePerSentence},
			},
		},
		{
			name: "colon at end of sentence",
			in:   "注意：\n下一句。",
			want: []wantSeg{
				{types.KindNarration, "注意：", 0, types.RulePerSentence},
				{types.KindNarration, "下一句。", 4, types.RulePerSentence},
			},
		},
		{
			name: "punctuation free",
			in:   "  just words  ",
			want: []wantSeg{
				{types.KindNarration, "just words", 0, types.RulePerSentence},
			},
		},
		{
			name: "whitespace collapsed in residual",
			in:   "A  \t“x”   b　c.",
			want: []wantSeg{
				{types.KindNarration, "A b c.", 0, types.RulePerSentence},
				{types.KindDialogue, "x", 4, types.RuleQuote},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkSegments(t, ExtractAll(tt.in), tt.want)
		})
	}
}

func TestAnalyze_QuoteRuleWinsOverColon(t *testing.T) {
	inputs := []string{
		"他说：“走”",
		`Note: she said "now".`,
		"甲：「乙」丙：丁",
	}
	for _, in := range inputs {
		a := Analyze(in)
		if len(a.Dialogue) == 0 {
			t.Fatalf("%q: expected quote dialogue", in)
		}
		for _, m := range a.Dialogue {
			if m.Rule != types.RuleQuote {
				t.Fatalf("%q: got %s rule, want quote", in, m.Rule)
			}
		}
	}
}

func TestAnalyze_DialogueAndResidualCoverSentence(t *testing.T) {
	doc := "他说：“你好”，她笑了。“甲”他说“乙”。班长说: 集合！“ ”空。plain tail"
	for s := range text.Sentences(doc) {
		a := Analyze(s.Text)
		n := s.End - s.Start

		var all Ranges
		total := 0
		for _, m := range a.Dialogue {
			all = append(all, m.Range)
			total += m.Range.Len()
		}
		for _, r := range a.Residual {
			all = append(all, r)
			total += r.Len()
		}
		if total != n {
			t.Fatalf("%q: ranges cover %d positions, sentence has %d (overlap or gap)", s.Text, total, n)
		}
		merged := all.Normalize()
		if len(merged) != 1 || merged[0] != (Range{Start: 0, End: n}) {
			t.Fatalf("%q: union %v does not equal [0,%d)", s.Text, merged, n)
		}
	}
}

func TestExtractAll_OrderingInvariant(t *testing.T) {
	doc := "“开门！”他喊道：“快！”\n门外没有回应。她低声说：别怕。\r\n“我在。”"
	segs := ExtractAll(doc)
	if len(segs) == 0 {
		t.Fatalf("expected segments")
	}
	for i := 1; i < len(segs); i++ {
		if segs[i-1].Sequence >= segs[i].Sequence {
			t.Fatalf("sequence not increasing at %d", i)
		}
		if segs[i-1].SourceOffset > segs[i].SourceOffset {
			t.Fatalf("offset decreases at %d: %d > %d", i, segs[i-1].SourceOffset, segs[i].SourceOffset)
		}
	}
}
