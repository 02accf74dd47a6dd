package bottleneck

import (
	"sort"

	"github.com/ConfabulousDev/aist/internal/session"
)

// Detector scans one session node. Detectors do not descend into
// children; DetectAll handles the tree walk.
type Detector interface {
	Kind() Kind
	Detect(s *session.Session, cfg Config) []Bottleneck
}

// Detectors returns every built-in detector.
func Detectors() []Detector {
	return []Detector{
		errorLoopDetector{},
		spiralDetector{},
		editThrashDetector{},
		longGapDetector{},
		subagentDetector{},
	}
}

// DetectAll runs every detector over root and its sub-sessions and returns
// the findings in a deterministic order.
func DetectAll(root *session.Session, cfg Config) []Bottleneck {
	var out []Bottleneck
	detectors := Detectors()
	root.Walk(func(s *session.Session, _ int) {
		for _, d := range detectors {
			out = append(out, d.Detect(s, cfg)...)
		}
	})
	Sort(out)
	return out
}

// Sort orders findings by start time (untimed last), then kind, then session.
func Sort(bs []Bottleneck) {
	sort.SliceStable(bs, func(i, j int) bool {
		a, b := bs[i], bs[j]
		switch {
		case a.Start != nil && b.Start != nil:
			if !a.Start.Equal(*b.Start) {
				return a.Start.Before(*b.Start)
			}
		case a.Start != nil:
			return true
		case b.Start != nil:
			return false
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.SessionID < b.SessionID
	})
}

// ByWastedTime orders findings by wasted time descending, ties by session
// then start.
func ByWastedTime(bs []Bottleneck) {
	sort.SliceStable(bs, func(i, j int) bool {
		wi, wj := bs[i].WastedTime(), bs[j].WastedTime()
		if wi != wj {
			return wi > wj
		}
		if bs[i].SessionID != bs[j].SessionID {
			return bs[i].SessionID < bs[j].SessionID
		}
		if bs[i].Start != nil && bs[j].Start != nil {
			return bs[i].Start.Before(*bs[j].Start)
		}
		return bs[i].Start != nil
	})
}

func newFinding(s *session.Session, kind Kind, seq int) Bottleneck {
	return Bottleneck{
		Kind:            kind,
		SessionID:       s.Key(),
		Project:         session.ProjectName(s.ProjectPath),
		PrecedingPrompt: truncate(s.LastUserText(seq), 200),
	}
}
