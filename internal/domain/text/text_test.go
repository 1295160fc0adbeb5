package text

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb", "a\nb"},
		{"lone cr", "a\rb\r", "a\nb\n"},
		{"mixed", "a\r\n\rb", "a\n\nb"},
		{"bom", "\ufeff他说", "他说"},
		{"invalid utf8", "a\xffb", "a\uFFFDb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", "\r\r\n\n", "\ufeff\ufeffx\r", "plain", "a\xff\r\nb", "\r\n\ufeff\r"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSpans_ReconstructInput(t *testing.T) {
	inputs := []string{
		"",
		"no terminator at all",
		"他说：“你好。”她笑了。",
		"One. Two!  Three?\n\nFour",
		"……;；\n",
		"   \n  tail",
	}
	for _, in := range inputs {
		var b strings.Builder
		prevEnd := 0
		for s := range Spans(in) {
			if s.Start != prevEnd {
				t.Fatalf("gap or overlap in %q: span starts at %d, previous ended at %d", in, s.Start, prevEnd)
			}
			if s.End-s.Start != utf8.RuneCountInString(s.Text) {
				t.Fatalf("span offsets [%d,%d) do not match text %q", s.Start, s.End, s.Text)
			}
			prevEnd = s.End
			b.WriteString(s.Text)
		}
		if b.String() != in {
			t.Fatalf("spans of %q reconstruct to %q", in, b.String())
		}
		if prevEnd != utf8.RuneCountInString(in) {
			t.Fatalf("spans of %q end at %d, want %d", in, prevEnd, utf8.RuneCountInString(in))
		}
	}
}

func TestSentences_DropsOnlyBlankSpans(t *testing.T) {
	in := "甲。。 \n乙！tail"
	got := SplitSentences(in)
	want := []Sentence{
		{Text: "甲。", Start: 0, End: 2},
		{Text: "。", Start: 2, End: 3},
		{Text: "乙！", Start: 5, End: 7},
		{Text: "tail", Start: 7, End: 11},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	var blank int
	for s := range Spans(in) {
		if strings.TrimSpace(s.Text) == "" {
			blank++
		}
	}
	if blank+len(got) != countSpans(in) {
		t.Fatalf("filter dropped non-blank spans")
	}
}

func TestSentences_Restartable(t *testing.T) {
	seq := Sentences("a. b. c.")
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 3 || second != 3 {
		t.Fatalf("expected 3 sentences on each pass, got %d and %d", first, second)
	}
}

func TestSentences_EarlyBreak(t *testing.T) {
	n := 0
	for range Sentences("a. b. c.") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2, got %d", n)
	}
}

func countSpans(s string) int {
	n := 0
	for range Spans(s) {
		n++
	}
	return n
}
