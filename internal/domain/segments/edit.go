package segments

import (
	"fmt"

	"github.com/forPelevin/narrate/internal/types"
)

func Find(segs []types.Segment, seq int) (types.Segment, error) {
	i := indexOf(segs, seq)
	if i < 0 {
		return types.Segment{}, fmt.Errorf("%w: seq=%d", ErrSegmentNotFound, seq)
	}
	return segs[i], nil
}

// Update replaces the segment with the same sequence number.
func Update(segs []types.Segment, s types.Segment) ([]types.Segment, error) {
	i := indexOf(segs, s.Sequence)
	if i < 0 {
		return nil, fmt.Errorf("%w: seq=%d", ErrSegmentNotFound, s.Sequence)
	}
	if s.EmotionHint == "" {
		s.EmotionHint = s.Text
	}
	if err := validateRecord(s); err != nil {
		return nil, err
	}
	out := make([]types.Segment, len(segs))
	copy(out, segs)
	out[i] = s
	return out, nil
}

// Insert places s right after the segment numbered after (0 inserts at the
// front) and renumbers the list.
func Insert(segs []types.Segment, after int, s types.Segment) ([]types.Segment, error) {
	pos := 0
	if after != 0 {
		i := indexOf(segs, after)
		if i < 0 {
			return nil, fmt.Errorf("%w: seq=%d", ErrSegmentNotFound, after)
		}
		pos = i + 1
	}
	if s.EmotionHint == "" {
		s.EmotionHint = s.Text
	}
	s.Sequence = pos + 1
	if err := validateRecord(s); err != nil {
		return nil, err
	}
	out := make([]types.Segment, 0, len(segs)+1)
	out = append(out, segs[:pos]...)
	out = append(out, s)
	out = append(out, segs[pos:]...)
	return Renumber(out), nil
}

func Delete(segs []types.Segment, seq int) ([]types.Segment, error) {
	i := indexOf(segs, seq)
	if i < 0 {
		return nil, fmt.Errorf("%w: seq=%d", ErrSegmentNotFound, seq)
	}
	out := make([]types.Segment, 0, len(segs)-1)
	out = append(out, segs[:i]...)
	out = append(out, segs[i+1:]...)
	return Renumber(out), nil
}

func indexOf(segs []types.Segment, seq int) int {
	for i, s := range segs {
		if s.Sequence == seq {
			return i
		}
	}
	return -1
}
