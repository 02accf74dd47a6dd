package bottleneck

import (
	"fmt"
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
	"github.com/ConfabulousDev/aist/internal/transcript"
)

var t0 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	return transcript.Timestamp(t0.Add(d))
}

func sec(n int) *time.Time {
	return at(time.Duration(n) * time.Second)
}

// builder accumulates log-ordered events for a test session.
type builder struct {
	events []transcript.Event
	next   int
}

func (b *builder) user(ts *time.Time, text string) *builder {
	b.events = append(b.events, transcript.Event{Kind: transcript.UserMessage, SessionID: "s", Timestamp: ts, Text: text})
	return b
}

func (b *builder) assistant(ts *time.Time, text string) *builder {
	b.events = append(b.events, transcript.Event{Kind: transcript.AssistantMessage, SessionID: "s", Timestamp: ts, Text: text})
	return b
}

// call appends a tool use and its result.
func (b *builder) call(useAt, resultAt *time.Time, name string, input map[string]interface{}, isError bool, content string) *builder {
	b.next++
	id := fmt.Sprintf("tu%d", b.next)
	b.events = append(b.events,
		transcript.Event{Kind: transcript.ToolUseEvent, SessionID: "s", Timestamp: useAt,
			ToolUse: &transcript.ToolUse{ID: id, Name: name, Input: input}},
		transcript.Event{Kind: transcript.ToolResultEvent, SessionID: "s", Timestamp: resultAt,
			ToolResult: &transcript.ToolResult{ToolUseID: id, IsError: isError, HasErrorFlag: true, Content: content}},
	)
	return b
}

func (b *builder) session() *session.Session {
	logs := []*transcript.Log{{Ref: transcript.Ref{Name: "s.jsonl"}, SessionID: "s", Events: b.events}}
	sessions, _ := session.Assemble(logs)
	return sessions[0]
}

func file(path string) map[string]interface{} {
	return map[string]interface{}{"file_path": path}
}

func ofKind(bs []Bottleneck, k Kind) []Bottleneck {
	var out []Bottleneck
	for _, b := range bs {
		if b.Kind == k {
			out = append(out, b)
		}
	}
	return out
}
