package segments

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/forPelevin/narrate/internal/types"
)

var (
	ErrMalformedSegmentJSON = errors.New("malformed segment json")
	ErrSegmentNotFound      = errors.New("segment not found")
	ErrInvalidSequence      = errors.New("invalid segment sequence")
)

// Decode reads an edited segment list. Records are validated; an empty
// emotion hint falls back to the spoken text.
func Decode(r io.Reader) ([]types.Segment, error) {
	var segs []types.Segment
	if err := json.NewDecoder(r).Decode(&segs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSegmentJSON, err)
	}
	for i := range segs {
		if strings.TrimSpace(segs[i].EmotionHint) == "" {
			segs[i].EmotionHint = segs[i].Text
		}
		if err := validateRecord(segs[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if segs == nil {
		segs = []types.Segment{}
	}
	return segs, nil
}

func Encode(w io.Writer, segs []types.Segment) error {
	if segs == nil {
		segs = []types.Segment{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(segs)
}

func validateRecord(s types.Segment) error {
	switch s.Kind {
	case types.KindDialogue, types.KindNarration:
	case "":
		return fmt.Errorf("%w: seq %d: missing kind", ErrMalformedSegmentJSON, s.Sequence)
	default:
		return fmt.Errorf("%w: seq %d: unknown kind %q", ErrMalformedSegmentJSON, s.Sequence, s.Kind)
	}
	if s.Sequence <= 0 {
		return fmt.Errorf("%w: seq must be >= 1, got %d", ErrMalformedSegmentJSON, s.Sequence)
	}
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: seq %d: empty text", ErrMalformedSegmentJSON, s.Sequence)
	}
	return nil
}
