package dialogue

import "sort"

// Range is a half-open [Start, End) rune range.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Ranges is a set of ranges. After Normalize it is sorted and disjoint.
type Ranges []Range

// Normalize sorts the set and merges overlapping or touching ranges.
// Empty ranges are dropped.
func (rs Ranges) Normalize() Ranges {
	out := make(Ranges, 0, len(rs))
	for _, r := range rs {
		if r.Len() > 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	merged := out[:0]
	for _, r := range out {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Covered is the number of positions in the set.
func (rs Ranges) Covered() int {
	n := 0
	for _, r := range rs.Normalize() {
		n += r.Len()
	}
	return n
}

// Subtract returns the parts of whole not covered by cut, in order.
func Subtract(whole Range, cut Ranges) Ranges {
	var out Ranges
	pos := whole.Start
	for _, c := range cut.Normalize() {
		if c.End <= pos {
			continue
		}
		if c.Start >= whole.End {
			break
		}
		if c.Start > pos {
			out = append(out, Range{Start: pos, End: c.Start})
		}
		pos = c.End
	}
	if pos < whole.End {
		out = append(out, Range{Start: pos, End: whole.End})
	}
	return out
}
