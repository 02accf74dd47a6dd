package transcript

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReadLog_TypedEvents(t *testing.T) {
	content := jsonl(
		makeUserMessage("u1", "2025-01-01T10:00:00Z", "fix the build"),
		makeAssistantMessage("a1", "2025-01-01T10:00:05Z", "claude-sonnet-4-20250514",
			textBlock("Running the tests"),
			toolUseBlock("tu1", "Bash", map[string]interface{}{"command": "go test ./..."}),
		),
		makeToolResultMessage("u2", "2025-01-01T10:00:09Z", toolResultBlock("tu1", "ok", false)),
		`{"type":"summary","summary":"Build fix","leafUuid":"a1"}`,
		`{"type":"file-history-snapshot","messageId":"m1","snapshot":{}}`,
		`{"type":"system","subtype":"compact_boundary","timestamp":"2025-01-01T10:01:00Z","sessionId":"test-session"}`,
	)

	log, err := ReadLog(strings.NewReader(content), Ref{Name: "test-session.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}

	wantKinds := []Kind{UserMessage, AssistantMessage, ToolUseEvent, ToolResultEvent, SummaryMessage, SnapshotMarker, SystemMessage}
	if len(log.Events) != len(wantKinds) {
		t.Fatalf("len(Events) = %d, want %d", len(log.Events), len(wantKinds))
	}
	for i, k := range wantKinds {
		if log.Events[i].Kind != k {
			t.Errorf("Events[%d].Kind = %v, want %v", i, log.Events[i].Kind, k)
		}
	}

	if log.SessionID != "test-session" {
		t.Errorf("SessionID = %q, want test-session", log.SessionID)
	}
	if log.TotalLines != 6 {
		t.Errorf("TotalLines = %d, want 6", log.TotalLines)
	}

	use := log.Events[2].ToolUse
	if use == nil || use.ID != "tu1" || use.Name != "Bash" {
		t.Fatalf("ToolUse = %+v, want tu1/Bash", use)
	}
	if use.Input["command"] != "go test ./..." {
		t.Errorf("ToolUse.Input[command] = %v", use.Input["command"])
	}
	res := log.Events[3].ToolResult
	if res == nil || res.ToolUseID != "tu1" || res.IsError || !res.HasErrorFlag {
		t.Errorf("ToolResult = %+v", res)
	}

	asst := log.Events[1]
	if asst.Usage == nil || asst.Usage.InputTokens != 100 || asst.Model != "claude-sonnet-4-20250514" {
		t.Errorf("assistant usage/model = %+v/%q", asst.Usage, asst.Model)
	}
	if asst.Text != "Running the tests" {
		t.Errorf("assistant Text = %q", asst.Text)
	}

	want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if log.Events[0].Timestamp == nil || !log.Events[0].Timestamp.Equal(want) {
		t.Errorf("Events[0].Timestamp = %v, want %v", log.Events[0].Timestamp, want)
	}
	// Summary and snapshot inherit the log's session
	if log.Events[4].SessionID != "test-session" {
		t.Errorf("summary SessionID = %q, want test-session", log.Events[4].SessionID)
	}
	if log.Events[4].Timestamp != nil {
		t.Error("summary without timestamp should have nil Timestamp")
	}
}

func TestReadLog_SkipsNoise(t *testing.T) {
	content := jsonl(
		`not json at all`,
		`{"no_type": true}`,
		`{"type": 42}`,
		`{"type":"mystery","timestamp":"2025-01-01T10:00:00Z"}`,
		`{"type":"user","message":"not an object"}`,
		``,
		makeUserMessage("u1", "2025-01-01T10:00:00Z", "hello"),
	)

	log, err := ReadLog(strings.NewReader(content), Ref{Name: "s.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(log.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(log.Events))
	}
	counts := CountByKind(log.Anomalies)
	if counts[MalformedRecord] != 5 {
		t.Errorf("malformed anomalies = %d, want 5 (%v)", counts[MalformedRecord], log.Anomalies)
	}
	for _, a := range log.Anomalies {
		if a.Source != "s.jsonl" {
			t.Errorf("anomaly Source = %q, want s.jsonl", a.Source)
		}
	}
}

func TestReadLog_BadTimestampKeepsRecord(t *testing.T) {
	content := jsonl(
		makeUserMessage("u1", "yesterday-ish", "hello"),
		makeUserMessage("u2", "", "no time"),
	)
	log, err := ReadLog(strings.NewReader(content), Ref{Name: "s.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(log.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(log.Events))
	}
	for i, e := range log.Events {
		if e.Timestamp != nil {
			t.Errorf("Events[%d].Timestamp = %v, want nil", i, e.Timestamp)
		}
	}
	if got := CountByKind(log.Anomalies)[MissingTimestamp]; got != 2 {
		t.Errorf("missing_timestamp anomalies = %d, want 2", got)
	}
}

func TestReadLog_NonStringTimestampKeepsRecord(t *testing.T) {
	content := jsonl(
		`{"type":"assistant","timestamp":null,"sessionId":"s",`+
			`"message":{"role":"assistant","content":[{"type":"text","text":"checking"},{"type":"tool_use","id":"tu1","name":"Bash","input":{"command":"ls"}}]}}`,
		`{"type":"user","timestamp":1735725600,"sessionId":"s",`+
			`"message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"a.go"}]}}`,
	)
	log, err := ReadLog(strings.NewReader(content), Ref{Name: "s.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}

	wantKinds := []Kind{AssistantMessage, ToolUseEvent, ToolResultEvent}
	if len(log.Events) != len(wantKinds) {
		t.Fatalf("len(Events) = %d, want %d (%v)", len(log.Events), len(wantKinds), log.Anomalies)
	}
	for i, k := range wantKinds {
		if log.Events[i].Kind != k {
			t.Errorf("Events[%d].Kind = %v, want %v", i, log.Events[i].Kind, k)
		}
		if log.Events[i].Timestamp != nil {
			t.Errorf("Events[%d].Timestamp = %v, want nil", i, log.Events[i].Timestamp)
		}
	}
	counts := CountByKind(log.Anomalies)
	if counts[MalformedRecord] != 0 {
		t.Errorf("malformed anomalies = %d, want 0 (%v)", counts[MalformedRecord], log.Anomalies)
	}
	if counts[MissingTimestamp] != 2 {
		t.Errorf("missing_timestamp anomalies = %d, want 2", counts[MissingTimestamp])
	}
}

func TestGetTimestamp(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr error
	}{
		{``, ErrNoTimestamp},
		{`""`, ErrNoTimestamp},
		{`null`, ErrTimestampNotString},
		{`1735725600`, ErrTimestampNotString},
		{`{"s":1}`, ErrTimestampNotString},
	}
	for _, tt := range tests {
		rec := &Record{Timestamp: json.RawMessage(tt.raw)}
		if _, err := rec.GetTimestamp(); !errors.Is(err, tt.wantErr) {
			t.Errorf("GetTimestamp(%s) error = %v, want %v", tt.raw, err, tt.wantErr)
		}
	}

	rec := &Record{Timestamp: json.RawMessage(`"2025-01-01T10:00:00.5+02:00"`)}
	got, err := rec.GetTimestamp()
	if err != nil {
		t.Fatalf("GetTimestamp failed: %v", err)
	}
	if want := time.Date(2025, 1, 1, 8, 0, 0, 5e8, time.UTC); !got.Equal(want) {
		t.Errorf("GetTimestamp = %v, want %v", got, want)
	}
}

func TestReadLog_OversizedLineIsSkipped(t *testing.T) {
	huge := `{"type":"user","message":{"role":"user","content":"` + strings.Repeat("x", maxLineSize+1) + `"}}`
	content := jsonl(
		makeUserMessage("u1", "2025-01-01T10:00:00Z", "before"),
		huge,
		makeUserMessage("u2", "2025-01-01T10:00:02Z", "after"),
	)
	log, err := ReadLog(strings.NewReader(content), Ref{Name: "s.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(log.Events) != 2 || log.Events[0].Text != "before" || log.Events[1].Text != "after" {
		t.Fatalf("Events = %+v, want before and after", log.Events)
	}
	if log.Events[1].Line != 3 {
		t.Errorf("after Line = %d, want 3", log.Events[1].Line)
	}
	if log.TotalLines != 3 {
		t.Errorf("TotalLines = %d, want 3", log.TotalLines)
	}
	if len(log.Anomalies) != 1 {
		t.Fatalf("Anomalies = %v, want one", log.Anomalies)
	}
	a := log.Anomalies[0]
	if a.Kind != MalformedRecord || a.Line != 2 || !strings.Contains(a.Detail, "line exceeds") {
		t.Errorf("anomaly = %+v, want malformed_record on line 2", a)
	}
}

func TestReadLog_LastLineWithoutNewline(t *testing.T) {
	content := makeUserMessage("u1", "2025-01-01T10:00:00Z", "one") + "\r\n" +
		makeUserMessage("u2", "2025-01-01T10:00:01Z", "two")
	log, err := ReadLog(strings.NewReader(content), Ref{Name: "s.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(log.Events) != 2 || log.TotalLines != 2 {
		t.Errorf("Events = %d, TotalLines = %d, want 2 and 2", len(log.Events), log.TotalLines)
	}
}

func TestReadLog_InvalidToolBlocks(t *testing.T) {
	content := jsonl(
		makeAssistantMessage("a1", "2025-01-01T10:00:00Z", "m",
			toolUseBlock("", "Bash", nil),
			toolUseBlock("tu2", "Read", map[string]interface{}{"file_path": "/a.go"}),
		),
		makeToolResultMessage("u1", "2025-01-01T10:00:01Z", toolResultBlock("", "x", false)),
	)
	log, err := ReadLog(strings.NewReader(content), Ref{Name: "s.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	var uses int
	for _, e := range log.Events {
		if e.Kind == ToolUseEvent {
			uses++
		}
		if e.Kind == ToolResultEvent {
			t.Error("tool_result without tool_use_id should be skipped")
		}
	}
	if uses != 1 {
		t.Errorf("tool uses = %d, want 1", uses)
	}
	if got := CountByKind(log.Anomalies)[MalformedRecord]; got != 2 {
		t.Errorf("malformed anomalies = %d, want 2", got)
	}
}

func TestReadLog_AgentResultLinkage(t *testing.T) {
	line := `{"type":"user","timestamp":"2025-01-01T10:00:00Z","sessionId":"parent",` +
		`"message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"task1","content":[{"type":"text","text":"done"}]}]},` +
		`"toolUseResult":{"agentId":"abc123","totalTokens":900}}`
	log, err := ReadLog(strings.NewReader(line+"\n"), Ref{Name: "parent.jsonl"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(log.Events) != 1 || log.Events[0].ToolResult == nil {
		t.Fatalf("Events = %+v, want one tool result", log.Events)
	}
	res := log.Events[0].ToolResult
	if res.AgentID != "abc123" {
		t.Errorf("AgentID = %q, want abc123", res.AgentID)
	}
	if res.Content != "done" {
		t.Errorf("Content = %q, want done", res.Content)
	}
	if res.HasErrorFlag {
		t.Error("HasErrorFlag = true, want false when is_error is absent")
	}
}

func TestReadLog_SessionFallsBackToFileStem(t *testing.T) {
	line := `{"type":"system","timestamp":"2025-01-01T10:00:00Z"}`
	log, err := ReadLog(strings.NewReader(line), Ref{Name: "/tmp/x/0b1c-uuid.jsonl.zst"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if log.SessionID != "0b1c-uuid" {
		t.Errorf("SessionID = %q, want 0b1c-uuid", log.SessionID)
	}
}

func TestExtractAgentID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"agent-abc.jsonl", "abc"},
		{"/p/agent-abc.jsonl.zst", "abc"},
		{"agent-abc.jsonl.br", "abc"},
		{"session.jsonl", ""},
		{"agent-abc.json", ""},
	}
	for _, tt := range tests {
		if got := ExtractAgentID(tt.name); got != tt.want {
			t.Errorf("ExtractAgentID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestToolResultFailed(t *testing.T) {
	tests := []struct {
		name string
		res  *ToolResult
		want bool
	}{
		{"flag true", &ToolResult{IsError: true, HasErrorFlag: true}, true},
		{"flag false wins over keywords", &ToolResult{Content: "error: boom", HasErrorFlag: true}, false},
		{"keyword without flag", &ToolResult{Content: "bash: foo: command not found"}, true},
		{"exit code", &ToolResult{Content: "Exit code 1"}, true},
		{"clean output", &ToolResult{Content: "PASS"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}
