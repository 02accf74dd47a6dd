// Package bottleneck detects named time-wasting patterns in sessions.
package bottleneck

import (
	"time"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

// Kind names a bottleneck pattern.
type Kind string

const (
	KindErrorLoop         Kind = "error_loop"
	KindExplorationSpiral Kind = "exploration_spiral"
	KindEditThrashing     Kind = "edit_thrashing"
	KindLongGap           Kind = "long_gap"
	KindSubagentOverhead  Kind = "subagent_overhead"
)

// Kinds lists all kinds in report order.
var Kinds = []Kind{KindErrorLoop, KindExplorationSpiral, KindEditThrashing, KindLongGap, KindSubagentOverhead}

func (k Kind) Title() string {
	switch k {
	case KindErrorLoop:
		return "Error loop"
	case KindExplorationSpiral:
		return "Exploration spiral"
	case KindEditThrashing:
		return "Edit thrashing"
	case KindLongGap:
		return "Long gap"
	case KindSubagentOverhead:
		return "Subagent overhead"
	}
	return string(k)
}

// Bottleneck is one finding. Exactly one payload pointer matching Kind is set.
// Start and End bound the finding in wall-clock time and are nil when the
// underlying events carry no timestamps.
type Bottleneck struct {
	Kind      Kind       `json:"kind"`
	SessionID string     `json:"session_id"`
	Project   string     `json:"project"`
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	// PrecedingPrompt is the last user text before the finding began.
	PrecedingPrompt string `json:"preceding_prompt,omitempty"`

	ErrorLoop         *ErrorLoop         `json:"error_loop,omitempty"`
	ExplorationSpiral *ExplorationSpiral `json:"exploration_spiral,omitempty"`
	EditThrashing     *EditThrashing     `json:"edit_thrashing,omitempty"`
	LongGap           *LongGap           `json:"long_gap,omitempty"`
	SubagentOverhead  *SubagentOverhead  `json:"subagent_overhead,omitempty"`
}

// ErrorLoop is a run of consecutive failures of the same tool.
type ErrorLoop struct {
	ToolName     string   `json:"tool_name"`
	FailureCount int      `json:"failure_count"`
	Samples      []string `json:"samples"`
}

// ExplorationSpiral is a stretch of reading and searching with no edits.
type ExplorationSpiral struct {
	ReadCount int           `json:"read_count"`
	Duration  time.Duration `json:"duration"`
	Files     []string      `json:"files"`
}

// EditThrashing is a file edited many times in one session.
type EditThrashing struct {
	FilePath  string        `json:"file_path"`
	EditCount int           `json:"edit_count"`
	Duration  time.Duration `json:"duration"`
}

// EventRef points at an event within a session.
type EventRef struct {
	Kind      string    `json:"kind"`
	Seq       int       `json:"seq"`
	Line      int       `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LongGap is an idle stretch between two timestamped events.
type LongGap struct {
	Gap    time.Duration `json:"gap"`
	Before EventRef      `json:"before"`
	After  EventRef      `json:"after"`
}

// SubagentOverhead is a sub-agent that produced little for its cost.
type SubagentOverhead struct {
	SubagentID   string `json:"subagent_id"`
	MessageCount int    `json:"message_count"`
	OutputSize   int    `json:"output_size"`
	PromptSize   int    `json:"prompt_size"`
}

// Span returns the finding's time span, or false when it has none.
func (b *Bottleneck) Span() (time.Time, time.Time, bool) {
	if b.Start == nil || b.End == nil || b.End.Before(*b.Start) {
		return time.Time{}, time.Time{}, false
	}
	return *b.Start, *b.End, true
}

// WastedTime is the length of the finding's span.
func (b *Bottleneck) WastedTime() time.Duration {
	start, end, ok := b.Span()
	if !ok {
		return 0
	}
	return end.Sub(start)
}

func eventRef(e *transcript.Event, seq int) EventRef {
	return EventRef{Kind: e.Kind.String(), Seq: seq, Line: e.Line, Timestamp: *e.Timestamp}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
