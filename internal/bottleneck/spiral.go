package bottleneck

import (
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
)

type spiralDetector struct{}

func (spiralDetector) Kind() Kind { return KindExplorationSpiral }

// Detect makes one forward pass over timestamped invocations. Each edit
// closes the current read run; a run qualifies when it holds more than
// SpiralMinReads reads spanning at least SpiralWindow. Every qualifying
// window lies inside one edit-free run, so the run itself is the widest
// qualifying span.
func (spiralDetector) Detect(s *session.Session, cfg Config) []Bottleneck {
	var out []Bottleneck
	var reads []session.ToolInvocation

	flush := func() {
		if len(reads) > cfg.SpiralMinReads {
			first, last := reads[0], reads[len(reads)-1]
			span := last.StartedAt.Sub(*first.StartedAt)
			if span >= cfg.SpiralWindow {
				out = append(out, spiralFinding(s, reads, span))
			}
		}
		reads = nil
	}

	for _, inv := range session.Chronological(s.Invocations) {
		if inv.StartedAt == nil {
			break
		}
		switch inv.Class() {
		case session.ClassRead:
			reads = append(reads, inv)
		case session.ClassEdit:
			flush()
		}
	}
	flush()
	return out
}

func spiralFinding(s *session.Session, reads []session.ToolInvocation, span time.Duration) Bottleneck {
	b := newFinding(s, KindExplorationSpiral, reads[0].Seq)
	b.Start = reads[0].StartedAt
	b.End = reads[len(reads)-1].StartedAt

	var files []string
	seen := make(map[string]bool)
	for _, inv := range reads {
		if p := inv.FilePath(); p != "" && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	b.ExplorationSpiral = &ExplorationSpiral{
		ReadCount: len(reads),
		Duration:  span,
		Files:     files,
	}
	return b
}
