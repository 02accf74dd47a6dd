package transcript

import (
	"fmt"
	"time"
)

// Normalize converts one decoded record into events. A record expands to
// one event per meaningful content block, in block order. Blocks with a
// broken shape are skipped and reported; the rest of the record is kept.
func Normalize(rec *Record, line int) ([]Event, []Anomaly) {
	base := Event{
		SessionID: rec.SessionID,
		Line:      line,
		GitBranch: rec.GitBranch,
		Cwd:       rec.Cwd,
	}
	var anomalies []Anomaly
	if ts, err := rec.GetTimestamp(); err == nil {
		ts = ts.UTC()
		base.Timestamp = &ts
	} else if len(rec.Timestamp) > 0 || rec.Type == "user" || rec.Type == "assistant" {
		anomalies = append(anomalies, Anomaly{
			Kind:      MissingTimestamp,
			SessionID: rec.SessionID,
			Line:      line,
			Detail:    timestampDetail(string(rec.Timestamp), err),
		})
	}

	var events []Event
	emit := func(e Event) {
		events = append(events, e)
	}
	badBlock := func(problem string) {
		anomalies = append(anomalies, Anomaly{
			Kind:      MalformedRecord,
			SessionID: rec.SessionID,
			Line:      line,
			Detail:    problem,
		})
	}

	switch rec.Type {
	case "user":
		recordAgent := rec.RecordAgentID()
		blocks := rec.ContentBlocks()
		if blocks == nil {
			e := base
			e.Kind = UserMessage
			e.Text = rec.ContentText()
			emit(e)
			break
		}
		resultCount := 0
		for _, b := range blocks {
			if b.Type == "tool_result" {
				resultCount++
			}
		}
		var text string
		for _, b := range blocks {
			switch b.Type {
			case "text":
				if text != "" {
					text += "\n"
				}
				text += b.Text
			case "tool_result":
				if problem := validateBlock(b); problem != "" {
					badBlock(problem)
					continue
				}
				agentID := b.AgentID
				if agentID == "" && resultCount == 1 {
					agentID = recordAgent
				}
				e := base
				e.Kind = ToolResultEvent
				e.ToolResult = &ToolResult{
					ToolUseID:    b.ToolUseID,
					Content:      b.Text,
					IsError:      b.IsError,
					HasErrorFlag: b.HasError,
					AgentID:      agentID,
				}
				emit(e)
			}
		}
		if text != "" {
			e := base
			e.Kind = UserMessage
			e.Text = text
			emit(e)
		}

	case "assistant":
		msg := base
		msg.Kind = AssistantMessage
		msg.Text = rec.ContentText()
		if rec.Message != nil {
			msg.Model = rec.Message.Model
			msg.Usage = rec.Message.Usage
		}
		emit(msg)
		for _, b := range rec.ContentBlocks() {
			if b.Type != "tool_use" {
				continue
			}
			if problem := validateBlock(b); problem != "" {
				badBlock(problem)
				continue
			}
			e := base
			e.Kind = ToolUseEvent
			e.ToolUse = &ToolUse{ID: b.ID, Name: b.Name, Input: b.Input}
			emit(e)
		}

	case "system":
		e := base
		e.Kind = SystemMessage
		emit(e)
	case "summary":
		e := base
		e.Kind = SummaryMessage
		e.Text = rec.Summary
		emit(e)
	case "file-history-snapshot":
		e := base
		e.Kind = SnapshotMarker
		emit(e)
	}
	return events, anomalies
}

func timestampDetail(raw string, err error) string {
	if raw == "" {
		return "no timestamp"
	}
	return fmt.Sprintf("unparsable timestamp %q: %v", truncate(raw, 40), err)
}

// Timestamp returns a pointer to t in UTC, a convenience for building events.
func Timestamp(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}
