// Package metrics computes per-session statistics and merges them into
// order-independent aggregates.
package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
	"github.com/ConfabulousDev/aist/internal/session"
	"github.com/ConfabulousDev/aist/internal/transcript"
)

// Tokens are summed token counts.
type Tokens struct {
	Input         int64 `json:"input"`
	Output        int64 `json:"output"`
	CacheCreation int64 `json:"cache_creation"`
	CacheRead     int64 `json:"cache_read"`
}

// BillableInput counts fresh input plus cache writes.
func (t Tokens) BillableInput() int64 {
	return t.Input + t.CacheCreation
}

func (t Tokens) add(o Tokens) Tokens {
	return Tokens{
		Input:         t.Input + o.Input,
		Output:        t.Output + o.Output,
		CacheCreation: t.CacheCreation + o.CacheCreation,
		CacheRead:     t.CacheRead + o.CacheRead,
	}
}

func tokensOf(u *transcript.TokenUsage) Tokens {
	if u == nil {
		return Tokens{}
	}
	return Tokens{
		Input:         u.InputTokens,
		Output:        u.OutputTokens,
		CacheCreation: u.CacheCreationInputTokens,
		CacheRead:     u.CacheReadInputTokens,
	}
}

// SessionMetrics are the statistics of one session tree. Duration covers
// the root session only; counts, files, tokens and cost include sub-agents.
// SubagentCount is the number of direct children of the root.
type SessionMetrics struct {
	SessionID   string     `json:"session_id"`
	Project     string     `json:"project"`
	ProjectPath string     `json:"project_path,omitempty"`
	GitBranch   string     `json:"git_branch,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	// Timed is false when the session has no timestamped events; such
	// sessions count toward totals but not toward durations.
	Timed    bool          `json:"timed"`
	Duration time.Duration `json:"duration"`

	EventCount      int            `json:"event_count"`
	InvocationCount int            `json:"invocation_count"`
	ToolCounts      map[string]int `json:"tool_counts"`
	ErrorCount      int            `json:"error_count"`
	PendingCount    int            `json:"pending_count"`
	FilesRead       []string       `json:"files_read"`
	FilesEdited     []string       `json:"files_edited"`
	SubagentCount   int            `json:"subagent_count"`

	Tokens Tokens          `json:"tokens"`
	Cost   decimal.Decimal `json:"cost"`

	BottleneckCounts map[bottleneck.Kind]int `json:"bottleneck_counts"`
	// BottleneckTime is the union of finding spans within the session.
	BottleneckTime time.Duration `json:"bottleneck_time"`
	// Efficiency is nil when the session has no measurable duration.
	Efficiency *float64 `json:"efficiency,omitempty"`
}

// Compute derives metrics for root and its sub-sessions from the findings
// detected over the same tree.
func Compute(root *session.Session, findings []bottleneck.Bottleneck) SessionMetrics {
	m := SessionMetrics{
		SessionID:        root.Key(),
		Project:          session.ProjectName(root.ProjectPath),
		ProjectPath:      root.ProjectPath,
		GitBranch:        root.GitBranch,
		StartTime:        root.StartTime,
		EndTime:          root.EndTime,
		ToolCounts:       make(map[string]int),
		BottleneckCounts: make(map[bottleneck.Kind]int),
		Cost:             decimal.Zero,
		SubagentCount:    len(root.Children),
	}
	if d, ok := root.Duration(); ok {
		m.Timed = true
		m.Duration = d
	}

	read := make(map[string]bool)
	edited := make(map[string]bool)
	root.Walk(func(s *session.Session, _ int) {
		m.EventCount += len(s.Events)
		for i := range s.Events {
			e := &s.Events[i]
			if e.Kind != transcript.AssistantMessage || e.Usage == nil {
				continue
			}
			t := tokensOf(e.Usage)
			m.Tokens = m.Tokens.add(t)
			m.Cost = m.Cost.Add(PricingFor(e.Model).Cost(t))
		}
		for i := range s.Invocations {
			inv := &s.Invocations[i]
			m.InvocationCount++
			m.ToolCounts[inv.Name]++
			if inv.IsError() {
				m.ErrorCount++
			}
			if inv.Pending() {
				m.PendingCount++
			}
			path := inv.FilePath()
			if path == "" {
				continue
			}
			switch inv.Class() {
			case session.ClassRead:
				read[path] = true
			case session.ClassEdit:
				edited[path] = true
			}
		}
	})
	m.FilesRead = sortedKeys(read)
	m.FilesEdited = sortedKeys(edited)

	for i := range findings {
		m.BottleneckCounts[findings[i].Kind]++
	}
	if m.Timed {
		m.BottleneckTime = UnionWithin(FindingSpans(findings), *m.StartTime, *m.EndTime)
		m.Efficiency = efficiency(m.Duration, m.BottleneckTime)
	}
	return m
}

// FindingSpans collects the time spans of findings that have one.
func FindingSpans(findings []bottleneck.Bottleneck) []Span {
	spans := make([]Span, 0, len(findings))
	for i := range findings {
		if start, end, ok := findings[i].Span(); ok {
			spans = append(spans, Span{Start: start, End: end})
		}
	}
	return spans
}

// efficiency is (duration - wasted) / duration clamped to [0, 1].
func efficiency(duration, wasted time.Duration) *float64 {
	if duration <= 0 {
		return nil
	}
	e := float64(duration-wasted) / float64(duration)
	if e < 0 {
		e = 0
	}
	if e > 1 {
		e = 1
	}
	return &e
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
