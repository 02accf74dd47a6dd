package bottleneck

import (
	"github.com/ConfabulousDev/aist/internal/session"
)

type longGapDetector struct{}

func (longGapDetector) Kind() Kind { return KindLongGap }

// Detect compares each timestamped event with the previous timestamped
// event in log order.
func (longGapDetector) Detect(s *session.Session, cfg Config) []Bottleneck {
	var out []Bottleneck
	prev := -1
	for i := range s.Events {
		e := &s.Events[i]
		if e.Timestamp == nil {
			continue
		}
		if prev >= 0 {
			p := &s.Events[prev]
			gap := e.Timestamp.Sub(*p.Timestamp)
			if gap > cfg.LongGapThreshold {
				// The prompt is the one leading into the gap, not one
				// logged inside it.
				b := newFinding(s, KindLongGap, prev+1)
				b.Start, b.End = p.Timestamp, e.Timestamp
				b.LongGap = &LongGap{
					Gap:    gap,
					Before: eventRef(p, prev),
					After:  eventRef(e, i),
				}
				out = append(out, b)
			}
		}
		prev = i
	}
	return out
}
