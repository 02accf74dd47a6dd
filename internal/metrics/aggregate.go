package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
)

// Aggregate is a cross-session summary. Merge is associative and
// commutative, so partial aggregates can be combined in any order.
type Aggregate struct {
	Sessions      int           `json:"sessions"`
	TimedSessions int           `json:"timed_sessions"`
	Duration      time.Duration `json:"duration"`

	Events      int            `json:"events"`
	Invocations int            `json:"invocations"`
	ToolCounts  map[string]int `json:"tool_counts"`
	Errors      int            `json:"errors"`
	Pending     int            `json:"pending"`
	FilesRead   map[string]int `json:"files_read"`   // path -> sessions that read it
	FilesEdited map[string]int `json:"files_edited"` // path -> sessions that edited it
	Subagents   int            `json:"subagents"`

	Tokens Tokens          `json:"tokens"`
	Cost   decimal.Decimal `json:"cost"`

	BottleneckCounts map[bottleneck.Kind]int `json:"bottleneck_counts"`
	BottleneckTime   time.Duration           `json:"bottleneck_time"`
}

// FromSession lifts one session's metrics into an aggregate.
func FromSession(m SessionMetrics) Aggregate {
	a := Aggregate{
		Sessions:         1,
		Events:           m.EventCount,
		Invocations:      m.InvocationCount,
		ToolCounts:       copyCounts(m.ToolCounts),
		Errors:           m.ErrorCount,
		Pending:          m.PendingCount,
		FilesRead:        make(map[string]int, len(m.FilesRead)),
		FilesEdited:      make(map[string]int, len(m.FilesEdited)),
		Subagents:        m.SubagentCount,
		Tokens:           m.Tokens,
		Cost:             m.Cost,
		BottleneckCounts: make(map[bottleneck.Kind]int, len(m.BottleneckCounts)),
	}
	if m.Timed {
		a.TimedSessions = 1
		a.Duration = m.Duration
		a.BottleneckTime = m.BottleneckTime
	}
	for _, p := range m.FilesRead {
		a.FilesRead[p]++
	}
	for _, p := range m.FilesEdited {
		a.FilesEdited[p]++
	}
	for k, v := range m.BottleneckCounts {
		a.BottleneckCounts[k] = v
	}
	return a
}

// Merge returns the combination of a and b. Neither input is modified.
func (a Aggregate) Merge(b Aggregate) Aggregate {
	out := Aggregate{
		Sessions:         a.Sessions + b.Sessions,
		TimedSessions:    a.TimedSessions + b.TimedSessions,
		Duration:         a.Duration + b.Duration,
		Events:           a.Events + b.Events,
		Invocations:      a.Invocations + b.Invocations,
		ToolCounts:       mergeCounts(a.ToolCounts, b.ToolCounts),
		Errors:           a.Errors + b.Errors,
		Pending:          a.Pending + b.Pending,
		FilesRead:        mergeCounts(a.FilesRead, b.FilesRead),
		FilesEdited:      mergeCounts(a.FilesEdited, b.FilesEdited),
		Subagents:        a.Subagents + b.Subagents,
		Tokens:           a.Tokens.add(b.Tokens),
		Cost:             a.Cost.Add(b.Cost),
		BottleneckCounts: make(map[bottleneck.Kind]int),
		BottleneckTime:   a.BottleneckTime + b.BottleneckTime,
	}
	for k, v := range a.BottleneckCounts {
		out.BottleneckCounts[k] += v
	}
	for k, v := range b.BottleneckCounts {
		out.BottleneckCounts[k] += v
	}
	return out
}

// Sum folds sessions left to right.
func Sum(ms []SessionMetrics) Aggregate {
	var agg Aggregate
	for _, m := range ms {
		agg = agg.Merge(FromSession(m))
	}
	return agg
}

// Efficiency is the share of timed session time not attributed to
// bottlenecks, or nil without timed sessions.
func (a Aggregate) Efficiency() *float64 {
	return efficiency(a.Duration, a.BottleneckTime)
}

// ErrorRate is errors per invocation.
func (a Aggregate) ErrorRate() float64 {
	if a.Invocations == 0 {
		return 0
	}
	return float64(a.Errors) / float64(a.Invocations)
}

// Equal reports whether two aggregates hold the same values.
func (a Aggregate) Equal(b Aggregate) bool {
	return a.Sessions == b.Sessions &&
		a.TimedSessions == b.TimedSessions &&
		a.Duration == b.Duration &&
		a.Events == b.Events &&
		a.Invocations == b.Invocations &&
		countsEqual(a.ToolCounts, b.ToolCounts) &&
		a.Errors == b.Errors &&
		a.Pending == b.Pending &&
		countsEqual(a.FilesRead, b.FilesRead) &&
		countsEqual(a.FilesEdited, b.FilesEdited) &&
		a.Subagents == b.Subagents &&
		a.Tokens == b.Tokens &&
		a.Cost.Equal(b.Cost) &&
		countsEqual(a.BottleneckCounts, b.BottleneckCounts) &&
		a.BottleneckTime == b.BottleneckTime
}

func copyCounts[K comparable](m map[K]int) map[K]int {
	out := make(map[K]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeCounts[K comparable](a, b map[K]int) map[K]int {
	out := make(map[K]int, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func countsEqual[K comparable](a, b map[K]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
