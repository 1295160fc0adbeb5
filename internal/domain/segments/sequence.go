package segments

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/narrate/internal/types"
)

// Sequence orders segments by source offset and assigns 1-based sequence
// numbers by rank. Ties keep their emission order. The input is not modified.
func Sequence(segs []types.Segment) []types.Segment {
	out := make([]types.Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SourceOffset < out[j].SourceOffset })
	for i := range out {
		out[i].Sequence = i + 1
	}
	return out
}

// Renumber assigns 1..N in slice order. Used after edits, when offsets no
// longer carry meaning.
func Renumber(segs []types.Segment) []types.Segment {
	out := make([]types.Segment, len(segs))
	copy(out, segs)
	for i := range out {
		out[i].Sequence = i + 1
	}
	return out
}

// Validate checks that sequence numbers are dense 1..N in list order and
// that every record is speakable.
func Validate(segs []types.Segment) error {
	for i, s := range segs {
		if s.Sequence != i+1 {
			return fmt.Errorf("%w: position %d has seq %d, want %d", ErrInvalidSequence, i, s.Sequence, i+1)
		}
		if err := validateRecord(s); err != nil {
			return err
		}
	}
	return nil
}

const (
	tagDialogue  = "dlg"
	tagNarration = "nar"
)

// Label is the clip basename for a segment: zero-padded sequence plus a
// kind tag, so that numeric sort of clip files reproduces sequence order.
func Label(s types.Segment) string {
	tag := tagNarration
	if s.IsDialogue() {
		tag = tagDialogue
	}
	return fmt.Sprintf("%05d_%s", s.Sequence, tag)
}

// IsNarrationLabel reports whether a clip name carries the narration tag.
func IsNarrationLabel(name string) bool {
	return strings.Contains(name, "_"+tagNarration)
}
