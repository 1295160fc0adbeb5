package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind labels a segment as spoken dialogue or narration.
type Kind string

const (
	KindDialogue  Kind = "dialogue"
	KindNarration Kind = "narration"
)

// UnmarshalJSON accepts the legacy "dialog" spelling.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "dialogue", "dialog":
		*k = KindDialogue
	case "narration":
		*k = KindNarration
	default:
		return fmt.Errorf("unknown segment kind %q", s)
	}
	return nil
}

// Rule names the extraction rule that produced a segment.
type Rule string

const (
	RuleQuote       Rule = "quote"
	RuleColon       Rule = "colon"
	RulePerSentence Rule = "per_sentence"
)

type Segment struct {
	Sequence    int    `json:"seq"`
	Kind        Kind   `json:"kind"`
	Text        string `json:"text"`
	EmotionHint string `json:"emotion_hint"`
	Rule        Rule   `json:"rule,omitempty"`

	// SourceOffset is the rune offset into the normalized source text.
	// Only meaningful until the list has been sequenced.
	SourceOffset int `json:"-"`
}

func (s Segment) IsDialogue() bool { return s.Kind == KindDialogue }

// SynthRequest is one call into an external voice model.
type SynthRequest struct {
	Text           string
	EmotionHint    string
	EmotionAlpha   float64
	ReferenceVoice string
	OutPath        string
}

type SynthResult struct {
	Path     string `json:"path"`
	Sequence int    `json:"seq"`
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
}

// ClipPlacement is where a clip landed on the merged timeline.
type ClipPlacement struct {
	Sequence int
	File     string
	Start    time.Duration
	End      time.Duration
}

type Manifest struct {
	RunID      string         `json:"run_id"`
	Input      string         `json:"input"`
	Merged     string         `json:"merged"`
	Subtitles  string         `json:"subtitles,omitempty"`
	SampleRate int            `json:"sample_rate"`
	Channels   int            `json:"channels"`
	GapMs      int            `json:"gap_ms"`
	Clips      []ManifestClip `json:"clips"`
	Segments   []Segment      `json:"segments"`
}

type ManifestClip struct {
	Seq      int     `json:"seq"`
	Kind     Kind    `json:"kind,omitempty"`
	File     string  `json:"file"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text,omitempty"`
}
