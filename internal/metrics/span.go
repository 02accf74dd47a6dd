package metrics

import (
	"sort"
	"time"
)

// Span is a closed wall-clock interval.
type Span struct {
	Start, End time.Time
}

// UnionWithin returns the total length covered by spans after clipping
// them to [lo, hi]. Overlapping spans are counted once.
func UnionWithin(spans []Span, lo, hi time.Time) time.Duration {
	clipped := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start.Before(lo) {
			s.Start = lo
		}
		if s.End.After(hi) {
			s.End = hi
		}
		if s.End.After(s.Start) {
			clipped = append(clipped, s)
		}
	}
	sort.Slice(clipped, func(i, j int) bool {
		return clipped[i].Start.Before(clipped[j].Start)
	})

	var total time.Duration
	var cur Span
	for i, s := range clipped {
		if i == 0 {
			cur = s
			continue
		}
		if !s.Start.After(cur.End) {
			if s.End.After(cur.End) {
				cur.End = s.End
			}
			continue
		}
		total += cur.End.Sub(cur.Start)
		cur = s
	}
	if len(clipped) > 0 {
		total += cur.End.Sub(cur.Start)
	}
	return total
}
