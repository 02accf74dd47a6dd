package session

import (
	"time"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

var t0 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func at(sec int) *time.Time {
	return transcript.Timestamp(t0.Add(time.Duration(sec) * time.Second))
}

func useEvent(sessionID string, ts *time.Time, id, name string, input map[string]interface{}) transcript.Event {
	return transcript.Event{
		Kind:      transcript.ToolUseEvent,
		SessionID: sessionID,
		Timestamp: ts,
		ToolUse:   &transcript.ToolUse{ID: id, Name: name, Input: input},
	}
}

func resultEvent(sessionID string, ts *time.Time, id string, isError bool) transcript.Event {
	return transcript.Event{
		Kind:       transcript.ToolResultEvent,
		SessionID:  sessionID,
		Timestamp:  ts,
		ToolResult: &transcript.ToolResult{ToolUseID: id, IsError: isError, HasErrorFlag: true},
	}
}

func agentResultEvent(sessionID string, ts *time.Time, id, agentID string) transcript.Event {
	e := resultEvent(sessionID, ts, id, false)
	e.ToolResult.AgentID = agentID
	return e
}

func userEvent(sessionID string, ts *time.Time, text string) transcript.Event {
	return transcript.Event{Kind: transcript.UserMessage, SessionID: sessionID, Timestamp: ts, Text: text}
}
