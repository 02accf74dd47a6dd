package bottleneck

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
	"github.com/ConfabulousDev/aist/internal/transcript"
)

func TestEditThrashing_Boundary(t *testing.T) {
	tests := []struct {
		edits int
		want  int
	}{
		{4, 0},
		{5, 1},
		{8, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d edits", tt.edits), func(t *testing.T) {
			b := &builder{}
			for i := 0; i < tt.edits; i++ {
				b.call(sec(i*10), sec(i*10+1), "Edit", file("/src/main.go"), false, "")
			}
			b.call(sec(500), sec(501), "Edit", file("/src/other.go"), false, "")
			got := editThrashDetector{}.Detect(b.session(), DefaultConfig())
			if len(got) != tt.want {
				t.Fatalf("findings = %d, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				et := got[0].EditThrashing
				if et.EditCount != tt.edits || et.FilePath != "/src/main.go" {
					t.Errorf("EditThrashing = %+v", et)
				}
				wantSpan := time.Duration(tt.edits-1) * 10 * time.Second
				if et.Duration != wantSpan {
					t.Errorf("Duration = %v, want %v", et.Duration, wantSpan)
				}
			}
		})
	}
}

func TestEditThrashing_MixedEditTools(t *testing.T) {
	b := &builder{}
	b.call(sec(0), sec(1), "Write", file("/a.go"), false, "")
	for i := 1; i < 4; i++ {
		b.call(sec(i*10), sec(i*10+1), "Edit", file("/a.go"), false, "")
	}
	b.call(sec(50), sec(51), "MultiEdit", file("/a.go"), false, "")
	if got := (editThrashDetector{}).Detect(b.session(), DefaultConfig()); len(got) != 1 {
		t.Errorf("findings = %d, want 1", len(got))
	}
}

func TestLongGap_Boundary(t *testing.T) {
	tests := []struct {
		gap  time.Duration
		want int
	}{
		{5 * time.Minute, 0},
		{5*time.Minute + time.Second, 1},
	}
	for _, tt := range tests {
		t.Run(tt.gap.String(), func(t *testing.T) {
			b := &builder{}
			b.user(at(0), "start")
			b.assistant(at(tt.gap), "reply")
			got := longGapDetector{}.Detect(b.session(), DefaultConfig())
			if len(got) != tt.want {
				t.Fatalf("findings = %d, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				lg := got[0].LongGap
				if lg.Gap != tt.gap || lg.Before.Seq != 0 || lg.After.Seq != 1 {
					t.Errorf("LongGap = %+v", lg)
				}
			}
		})
	}
}

func TestLongGap_SkipsUntimestampedEvents(t *testing.T) {
	b := &builder{}
	b.user(at(0), "start")
	b.assistant(nil, "no clock")
	b.assistant(at(10*time.Minute), "late")
	got := longGapDetector{}.Detect(b.session(), DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if got[0].LongGap.Before.Seq != 0 || got[0].LongGap.After.Seq != 2 {
		t.Errorf("bracketing = %d..%d, want 0..2", got[0].LongGap.Before.Seq, got[0].LongGap.After.Seq)
	}
}

func TestLongGap_PromptPrecedesGap(t *testing.T) {
	b := &builder{}
	b.user(at(0), "first")
	b.assistant(at(time.Minute), "reply")
	b.user(nil, "typed during the gap")
	b.assistant(at(20*time.Minute), "late")
	got := longGapDetector{}.Detect(b.session(), DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if got[0].LongGap.Before.Seq != 1 || got[0].LongGap.After.Seq != 3 {
		t.Errorf("bracketing = %d..%d, want 1..3", got[0].LongGap.Before.Seq, got[0].LongGap.After.Seq)
	}
	if got[0].PrecedingPrompt != "first" {
		t.Errorf("PrecedingPrompt = %q, want first", got[0].PrecedingPrompt)
	}
}

func TestExplorationSpiral(t *testing.T) {
	tests := []struct {
		name  string
		reads int
		every time.Duration
		want  int
	}{
		{"eleven reads over ten minutes", 11, time.Minute, 1},
		{"ten reads is not enough", 10, 2 * time.Minute, 0},
		{"eleven reads too fast", 11, 30 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &builder{}
			for i := 0; i < tt.reads; i++ {
				ts := at(time.Duration(i) * tt.every)
				b.call(ts, ts, "Read", file(fmt.Sprintf("/f%d.go", i%3)), false, "")
			}
			got := spiralDetector{}.Detect(b.session(), DefaultConfig())
			if len(got) != tt.want {
				t.Fatalf("findings = %d, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				sp := got[0].ExplorationSpiral
				if sp.ReadCount != tt.reads {
					t.Errorf("ReadCount = %d, want %d", sp.ReadCount, tt.reads)
				}
				if len(sp.Files) != 3 {
					t.Errorf("Files = %v, want 3 distinct", sp.Files)
				}
				if sp.Duration != time.Duration(tt.reads-1)*tt.every {
					t.Errorf("Duration = %v", sp.Duration)
				}
			}
		})
	}
}

func TestExplorationSpiral_EditBreaksAndMergesMaximalSpan(t *testing.T) {
	b := &builder{}
	// 20 reads over 19 minutes form one spiral, not many overlapping windows
	for i := 0; i < 20; i++ {
		b.call(at(time.Duration(i)*time.Minute), nil, "Grep", nil, false, "")
	}
	b.call(at(19*time.Minute+30*time.Second), nil, "Edit", file("/a.go"), false, "")
	// 11 reads after the edit but only 5 minutes long
	for i := 0; i < 11; i++ {
		b.call(at(20*time.Minute+time.Duration(i)*30*time.Second), nil, "Glob", nil, false, "")
	}
	got := spiralDetector{}.Detect(b.session(), DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if got[0].ExplorationSpiral.ReadCount != 20 {
		t.Errorf("ReadCount = %d, want 20", got[0].ExplorationSpiral.ReadCount)
	}
	if !got[0].Start.Equal(*at(0)) || !got[0].End.Equal(*at(19 * time.Minute)) {
		t.Errorf("span = %v..%v", got[0].Start, got[0].End)
	}
}

func TestExplorationSpiral_IgnoresUntimestamped(t *testing.T) {
	b := &builder{}
	for i := 0; i < 15; i++ {
		b.call(nil, nil, "Read", file("/a"), false, "")
	}
	if got := (spiralDetector{}).Detect(b.session(), DefaultConfig()); len(got) != 0 {
		t.Errorf("findings = %d, want 0", len(got))
	}
}

func subagentTree(childEvents []transcript.Event, prompt string) *session.Session {
	parentEvents := []transcript.Event{
		{Kind: transcript.ToolUseEvent, SessionID: "p", Timestamp: sec(0),
			ToolUse: &transcript.ToolUse{ID: "t1", Name: "Task", Input: map[string]interface{}{"prompt": prompt}}},
		{Kind: transcript.ToolResultEvent, SessionID: "p", Timestamp: sec(60),
			ToolResult: &transcript.ToolResult{ToolUseID: "t1", AgentID: "ag", HasErrorFlag: true}},
	}
	logs := []*transcript.Log{
		{Ref: transcript.Ref{Name: "p.jsonl"}, SessionID: "p", Events: parentEvents},
		{Ref: transcript.Ref{Name: "agent-ag.jsonl", AgentID: "ag"}, SessionID: "p", AgentID: "ag", Events: childEvents},
	}
	sessions, _ := session.Assemble(logs)
	return sessions[0]
}

func TestSubagentOverhead(t *testing.T) {
	long := strings.Repeat("x", 400)
	busy := []transcript.Event{
		{Kind: transcript.UserMessage, SessionID: "p", Timestamp: sec(1), Text: "go"},
		{Kind: transcript.AssistantMessage, SessionID: "p", Timestamp: sec(2), Text: long},
		{Kind: transcript.AssistantMessage, SessionID: "p", Timestamp: sec(3), Text: long},
	}
	thin := []transcript.Event{
		{Kind: transcript.UserMessage, SessionID: "p", Timestamp: sec(1), Text: "go"},
		{Kind: transcript.AssistantMessage, SessionID: "p", Timestamp: sec(2), Text: "ok"},
		{Kind: transcript.AssistantMessage, SessionID: "p", Timestamp: sec(3), Text: "done"},
	}
	few := busy[:2]

	tests := []struct {
		name   string
		events []transcript.Event
		want   int
	}{
		{"productive", busy, 0},
		{"thin output", thin, 1},
		{"too few events", few, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := subagentTree(tt.events, strings.Repeat("p", 200))
			got := subagentDetector{}.Detect(root, DefaultConfig())
			if len(got) != tt.want {
				t.Fatalf("findings = %d, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				so := got[0].SubagentOverhead
				if so.SubagentID != "ag" || so.PromptSize != 200 || so.MessageCount != len(tt.events) {
					t.Errorf("SubagentOverhead = %+v", so)
				}
				if got[0].SessionID != "ag" {
					t.Errorf("SessionID = %q, want ag", got[0].SessionID)
				}
			}
		})
	}
}

func TestDetectAll_DeterministicAndWalksChildren(t *testing.T) {
	build := func() *session.Session {
		b := &builder{}
		b.user(sec(0), "go")
		for i := 0; i < 3; i++ {
			b.call(sec(10+i*2), sec(11+i*2), "Bash", nil, true, "boom")
		}
		for i := 0; i < 5; i++ {
			b.call(sec(20+i), sec(20+i), "Edit", file("/x.go"), false, "")
		}
		b.assistant(at(time.Hour), "back")
		return b.session()
	}

	first := DetectAll(build(), DefaultConfig())
	second := DetectAll(build(), DefaultConfig())
	if len(first) != 3 {
		t.Fatalf("findings = %d, want 3 (%v)", len(first), first)
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || !first[i].Start.Equal(*second[i].Start) {
			t.Errorf("run differs at %d: %v vs %v", i, first[i].Kind, second[i].Kind)
		}
	}
	wantOrder := []Kind{KindErrorLoop, KindEditThrashing, KindLongGap}
	for i, k := range wantOrder {
		if first[i].Kind != k {
			t.Errorf("findings[%d].Kind = %v, want %v", i, first[i].Kind, k)
		}
	}

	root := subagentTree([]transcript.Event{
		{Kind: transcript.UserMessage, SessionID: "p", Timestamp: sec(1), Text: "go"},
		{Kind: transcript.AssistantMessage, SessionID: "p", Timestamp: at(20 * time.Minute), Text: "ok"},
	}, "")
	got := DetectAll(root, DefaultConfig())
	if len(ofKind(got, KindLongGap)) != 1 {
		t.Errorf("long gap in child not detected: %v", got)
	}
	if len(ofKind(got, KindSubagentOverhead)) != 1 {
		t.Errorf("subagent overhead not detected: %v", got)
	}
}

func TestByWastedTime(t *testing.T) {
	bs := []Bottleneck{
		{Kind: KindLongGap, SessionID: "a", Start: sec(0), End: sec(10)},
		{Kind: KindErrorLoop, SessionID: "b", Start: sec(0), End: sec(100)},
		{Kind: KindEditThrashing, SessionID: "c"},
	}
	ByWastedTime(bs)
	if bs[0].SessionID != "b" || bs[1].SessionID != "a" || bs[2].SessionID != "c" {
		t.Errorf("order = %s,%s,%s; want b,a,c", bs[0].SessionID, bs[1].SessionID, bs[2].SessionID)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
	cfg := DefaultConfig()
	cfg.LongGapThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero gap threshold should fail")
	}
}
