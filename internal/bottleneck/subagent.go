package bottleneck

import (
	"github.com/ConfabulousDev/aist/internal/session"
	"github.com/ConfabulousDev/aist/internal/transcript"
)

type subagentDetector struct{}

func (subagentDetector) Kind() Kind { return KindSubagentOverhead }

// Detect flags children of s whose event count is below SubagentMinEvents,
// or whose assistant output is small next to the prompt that spawned them.
func (subagentDetector) Detect(s *session.Session, cfg Config) []Bottleneck {
	var out []Bottleneck
	for _, child := range s.Children {
		var output int
		for _, e := range child.Events {
			if e.Kind == transcript.AssistantMessage {
				output += len(e.Text)
			}
		}

		var spawn *session.ToolInvocation
		var promptSize int
		if child.SpawnedBy != "" {
			spawn = s.Invocation(child.SpawnedBy)
		}
		if spawn != nil {
			if p, ok := spawn.Input["prompt"].(string); ok {
				promptSize = len(p)
			}
		}

		few := len(child.Events) < cfg.SubagentMinEvents
		thin := promptSize > 0 && float64(output) < cfg.SubagentMinOutputRatio*float64(promptSize)
		if !few && !thin {
			continue
		}

		seq := len(s.Events)
		if spawn != nil {
			seq = spawn.Seq
		}
		b := newFinding(s, KindSubagentOverhead, seq)
		b.SessionID = child.Key()
		b.Start, b.End = child.StartTime, child.EndTime
		if b.Start == nil && spawn != nil {
			b.Start, b.End = spawn.StartedAt, spawn.EndedAt()
		}
		b.SubagentOverhead = &SubagentOverhead{
			SubagentID:   child.Key(),
			MessageCount: len(child.Events),
			OutputSize:   output,
			PromptSize:   promptSize,
		}
		out = append(out, b)
	}
	return out
}
