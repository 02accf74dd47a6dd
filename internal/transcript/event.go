package transcript

import (
	"strings"
	"time"
)

// Kind identifies the variant of an Event.
type Kind int

const (
	UserMessage Kind = iota
	AssistantMessage
	ToolUseEvent
	ToolResultEvent
	SystemMessage
	SummaryMessage
	SnapshotMarker
)

func (k Kind) String() string {
	switch k {
	case UserMessage:
		return "user_message"
	case AssistantMessage:
		return "assistant_message"
	case ToolUseEvent:
		return "tool_use"
	case ToolResultEvent:
		return "tool_result"
	case SystemMessage:
		return "system_message"
	case SummaryMessage:
		return "summary_message"
	case SnapshotMarker:
		return "snapshot_marker"
	}
	return "unknown"
}

// Event is one normalized entry of a session log.
// Exactly one of ToolUse/ToolResult is set for the tool kinds; neither otherwise.
type Event struct {
	Kind      Kind
	SessionID string
	Line      int        // 1-indexed source line
	Timestamp *time.Time // nil when absent or unparsable

	Text string // user/assistant/summary text

	ToolUse    *ToolUse
	ToolResult *ToolResult

	// Assistant messages only
	Model string
	Usage *TokenUsage

	GitBranch string
	Cwd       string
}

// HasTimestamp reports whether the event carries a usable timestamp.
func (e *Event) HasTimestamp() bool {
	return e.Timestamp != nil
}

// ToolUse is a tool invocation request made by the assistant.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ToolResult is the outcome of a tool invocation.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
	// HasErrorFlag is false when the record carried no is_error key.
	HasErrorFlag bool
	// AgentID is set when the result came back from a Task-class tool.
	AgentID string
}

var failureKeywords = []string{
	"error",
	"failed",
	"not found",
	"permission denied",
	"no such file",
	"command not found",
	"exit code",
}

// Failed reports whether the result represents a failure. The explicit
// is_error flag wins; without one the content is matched against known
// failure keywords.
func (r *ToolResult) Failed() bool {
	if r == nil {
		return false
	}
	if r.HasErrorFlag {
		return r.IsError
	}
	return ContentLooksFailed(r.Content)
}

// ContentLooksFailed reports whether text contains a failure keyword.
func ContentLooksFailed(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range failureKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
