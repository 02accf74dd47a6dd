package session

import (
	"fmt"
	"time"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

// ToolInvocation is a tool call paired with its result, if one arrived.
type ToolInvocation struct {
	ID        string
	Name      string
	Input     map[string]interface{}
	StartedAt *time.Time
	Result    *transcript.ToolResult // nil while pending
	ResultAt  *time.Time
	// Duration is nil unless both timestamps are known.
	Duration *time.Duration
	// Seq is the index of the originating ToolUse event in the session.
	Seq int
	// ResultSeq is the index of the result event, or -1 when pending.
	ResultSeq int
}

// Pending reports whether no result was matched.
func (inv *ToolInvocation) Pending() bool {
	return inv.Result == nil
}

// Failed reports whether the result is a failure, by flag or by content.
func (inv *ToolInvocation) Failed() bool {
	return inv.Result.Failed()
}

// IsError reports an explicit is_error flag on the result.
func (inv *ToolInvocation) IsError() bool {
	return inv.Result != nil && inv.Result.IsError
}

// Class returns the tool class of the invocation.
func (inv *ToolInvocation) Class() Class {
	return Classify(inv.Name)
}

// FilePath returns the file the invocation targets, if any.
func (inv *ToolInvocation) FilePath() string {
	return FilePath(inv.Name, inv.Input)
}

// EndedAt is the result time, falling back to the start.
func (inv *ToolInvocation) EndedAt() *time.Time {
	if inv.ResultAt != nil {
		return inv.ResultAt
	}
	return inv.StartedAt
}

// Correlate pairs every ToolResult with the most recent preceding unmatched
// ToolUse carrying the same identifier. Results without a match are dropped
// and reported; uses without a result stay in the output as pending.
// The returned invocations are in ToolUse log order.
func Correlate(sessionID string, events []transcript.Event) ([]ToolInvocation, []transcript.Anomaly) {
	var invocations []ToolInvocation
	var anomalies []transcript.Anomaly
	open := make(map[string][]int) // tool use id -> stack of indexes into invocations

	for i := range events {
		e := &events[i]
		switch e.Kind {
		case transcript.ToolUseEvent:
			invocations = append(invocations, ToolInvocation{
				ID:        e.ToolUse.ID,
				Name:      e.ToolUse.Name,
				Input:     e.ToolUse.Input,
				StartedAt: e.Timestamp,
				Seq:       i,
				ResultSeq: -1,
			})
			open[e.ToolUse.ID] = append(open[e.ToolUse.ID], len(invocations)-1)

		case transcript.ToolResultEvent:
			id := e.ToolResult.ToolUseID
			stack := open[id]
			if len(stack) == 0 {
				anomalies = append(anomalies, transcript.Anomaly{
					Kind:      transcript.UnmatchedToolResult,
					SessionID: sessionID,
					Line:      e.Line,
					Detail:    fmt.Sprintf("tool_result for unknown tool_use_id %q", id),
				})
				continue
			}
			idx := stack[len(stack)-1]
			open[id] = stack[:len(stack)-1]

			inv := &invocations[idx]
			inv.Result = e.ToolResult
			inv.ResultAt = e.Timestamp
			inv.ResultSeq = i
			if inv.StartedAt != nil && inv.ResultAt != nil {
				d := inv.ResultAt.Sub(*inv.StartedAt)
				inv.Duration = &d
			}
		}
	}

	for _, inv := range invocations {
		if inv.Pending() {
			anomalies = append(anomalies, transcript.Anomaly{
				Kind:      transcript.PendingToolUse,
				SessionID: sessionID,
				Line:      events[inv.Seq].Line,
				Detail:    fmt.Sprintf("%s call %q has no result", inv.Name, inv.ID),
			})
		}
	}
	return invocations, anomalies
}
