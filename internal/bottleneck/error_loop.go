package bottleneck

import (
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
)

const maxSamples = 3

type errorLoopDetector struct{}

func (errorLoopDetector) Kind() Kind { return KindErrorLoop }

// Detect emits one finding per maximal run of consecutive failures of the
// same tool. A success, a pending call, or a different tool ends the run.
func (errorLoopDetector) Detect(s *session.Session, cfg Config) []Bottleneck {
	var out []Bottleneck
	var run []session.ToolInvocation

	flush := func() {
		if len(run) >= cfg.ErrorLoopMinFailures {
			out = append(out, errorLoopFinding(s, run))
		}
		run = nil
	}

	for _, inv := range session.Chronological(s.Invocations) {
		if !inv.Failed() {
			flush()
			continue
		}
		if len(run) > 0 && run[0].Name != inv.Name {
			flush()
		}
		run = append(run, inv)
	}
	flush()
	return out
}

func errorLoopFinding(s *session.Session, run []session.ToolInvocation) Bottleneck {
	b := newFinding(s, KindErrorLoop, run[0].Seq)
	var start, end *time.Time
	samples := make([]string, 0, maxSamples)
	for _, inv := range run {
		if inv.StartedAt != nil && (start == nil || inv.StartedAt.Before(*start)) {
			start = inv.StartedAt
		}
		if e := inv.EndedAt(); e != nil && (end == nil || e.After(*end)) {
			end = e
		}
		if len(samples) < maxSamples {
			samples = append(samples, truncate(inv.Result.Content, 200))
		}
	}
	b.Start, b.End = start, end
	b.ErrorLoop = &ErrorLoop{
		ToolName:     run[0].Name,
		FailureCount: len(run),
		Samples:      samples,
	}
	return b
}
