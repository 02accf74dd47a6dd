package session

import (
	"sort"
	"strings"
	"time"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

// Session is one assistant conversation with its sub-agent sessions.
type Session struct {
	ID string
	// AgentID is set for sub-agent sessions.
	AgentID     string
	ProjectPath string
	GitBranch   string
	Sources     []string

	// Events are in log order.
	Events      []transcript.Event
	Invocations []ToolInvocation

	// Children are owned exclusively by this session.
	Children []*Session
	// SpawnedBy is the tool use id of the Task-class call that started this
	// sub-agent, or "" when unknown.
	SpawnedBy string

	// StartTime and EndTime are nil when no event carries a timestamp.
	StartTime *time.Time
	EndTime   *time.Time
}

// Key is the stable identifier used in reports: the agent id for
// sub-agents, the session id otherwise.
func (s *Session) Key() string {
	if s.AgentID != "" {
		return s.AgentID
	}
	return s.ID
}

// Timed reports whether the session has defined start and end times.
func (s *Session) Timed() bool {
	return s.StartTime != nil && s.EndTime != nil
}

// Duration returns end-start, or false when undefined.
func (s *Session) Duration() (time.Duration, bool) {
	if !s.Timed() {
		return 0, false
	}
	return s.EndTime.Sub(*s.StartTime), true
}

// Walk visits the session and all descendants depth-first, parents first.
func (s *Session) Walk(fn func(s *Session, depth int)) {
	s.walk(fn, 0)
}

func (s *Session) walk(fn func(*Session, int), depth int) {
	fn(s, depth)
	for _, c := range s.Children {
		c.walk(fn, depth+1)
	}
}

// Invocation returns the invocation with the given tool use id.
func (s *Session) Invocation(id string) *ToolInvocation {
	for i := range s.Invocations {
		if s.Invocations[i].ID == id {
			return &s.Invocations[i]
		}
	}
	return nil
}

// LastUserText returns the last user message text before event index seq.
func (s *Session) LastUserText(seq int) string {
	if seq > len(s.Events) {
		seq = len(s.Events)
	}
	for i := seq - 1; i >= 0; i-- {
		if s.Events[i].Kind == transcript.UserMessage && s.Events[i].Text != "" {
			return s.Events[i].Text
		}
	}
	return ""
}

func (s *Session) computeBounds() {
	s.StartTime, s.EndTime = nil, nil
	for i := range s.Events {
		ts := s.Events[i].Timestamp
		if ts == nil {
			continue
		}
		if s.StartTime == nil || ts.Before(*s.StartTime) {
			s.StartTime = ts
		}
		if s.EndTime == nil || ts.After(*s.EndTime) {
			s.EndTime = ts
		}
	}
}

// SortSessions orders sessions by start time, untimed sessions last, then
// by key.
func SortSessions(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		switch {
		case a.StartTime != nil && b.StartTime != nil:
			if !a.StartTime.Equal(*b.StartTime) {
				return a.StartTime.Before(*b.StartTime)
			}
		case a.StartTime != nil:
			return true
		case b.StartTime != nil:
			return false
		}
		return a.Key() < b.Key()
	})
}

// Chronological returns the invocations ordered by start time, with
// untimestamped invocations last in log order.
func Chronological(invs []ToolInvocation) []ToolInvocation {
	out := make([]ToolInvocation, len(invs))
	copy(out, invs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartedAt, out[j].StartedAt
		switch {
		case a != nil && b != nil:
			return a.Before(*b)
		case a != nil:
			return true
		default:
			return false
		}
	})
	return out
}

// ProjectName returns the last path segment of a project path.
func ProjectName(projectPath string) string {
	trimmed := strings.TrimRight(projectPath, "/\\")
	if trimmed == "" {
		return "unknown"
	}
	if i := strings.LastIndexAny(trimmed, "/\\"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
