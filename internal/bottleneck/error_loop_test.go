package bottleneck

import (
	"testing"
)

func TestErrorLoop_ThreeConsecutiveFailures(t *testing.T) {
	b := &builder{}
	b.call(sec(0), sec(1), "Bash", nil, true, "exit 1")
	b.call(sec(2), sec(3), "Bash", nil, true, "exit 1")
	b.call(sec(4), sec(5), "Bash", nil, true, "exit 1")

	got := errorLoopDetector{}.Detect(b.session(), DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	f := got[0]
	if f.ErrorLoop.ToolName != "Bash" || f.ErrorLoop.FailureCount != 3 {
		t.Errorf("ErrorLoop = %+v, want Bash x3", f.ErrorLoop)
	}
	if !f.Start.Equal(*sec(0)) || !f.End.Equal(*sec(5)) {
		t.Errorf("span = %v..%v, want t=0..5s", f.Start, f.End)
	}
	if len(f.ErrorLoop.Samples) != 3 {
		t.Errorf("samples = %d, want 3", len(f.ErrorLoop.Samples))
	}
}

func TestErrorLoop_TwoFailuresIgnored(t *testing.T) {
	b := &builder{}
	b.call(sec(0), sec(1), "Bash", nil, true, "")
	b.call(sec(2), sec(3), "Bash", nil, true, "")
	if got := (errorLoopDetector{}).Detect(b.session(), DefaultConfig()); len(got) != 0 {
		t.Errorf("findings = %d, want 0", len(got))
	}
}

func TestErrorLoop_SplitBySuccess(t *testing.T) {
	b := &builder{}
	for i := 0; i < 3; i++ {
		b.call(sec(i*2), sec(i*2+1), "Bash", nil, true, "")
	}
	b.call(sec(10), sec(11), "Bash", nil, false, "ok")
	for i := 0; i < 4; i++ {
		b.call(sec(20+i*2), sec(21+i*2), "Bash", nil, true, "")
	}

	got := errorLoopDetector{}.Detect(b.session(), DefaultConfig())
	if len(got) != 2 {
		t.Fatalf("findings = %d, want 2", len(got))
	}
	if got[0].ErrorLoop.FailureCount != 3 || got[1].ErrorLoop.FailureCount != 4 {
		t.Errorf("counts = %d,%d; want 3,4", got[0].ErrorLoop.FailureCount, got[1].ErrorLoop.FailureCount)
	}
}

func TestErrorLoop_FourSplitInMiddleYieldsNone(t *testing.T) {
	b := &builder{}
	b.call(sec(0), sec(1), "Bash", nil, true, "")
	b.call(sec(2), sec(3), "Bash", nil, true, "")
	b.call(sec(4), sec(5), "Bash", nil, false, "")
	b.call(sec(6), sec(7), "Bash", nil, true, "")
	b.call(sec(8), sec(9), "Bash", nil, true, "")
	if got := (errorLoopDetector{}).Detect(b.session(), DefaultConfig()); len(got) != 0 {
		t.Errorf("findings = %d, want 0 (two runs of 2)", len(got))
	}
}

func TestErrorLoop_DifferentToolBreaksRun(t *testing.T) {
	b := &builder{}
	b.call(sec(0), sec(1), "Bash", nil, true, "")
	b.call(sec(2), sec(3), "Bash", nil, true, "")
	b.call(sec(4), sec(5), "Read", file("/a"), true, "")
	b.call(sec(6), sec(7), "Bash", nil, true, "")
	if got := (errorLoopDetector{}).Detect(b.session(), DefaultConfig()); len(got) != 0 {
		t.Errorf("findings = %d, want 0", len(got))
	}
}

func TestErrorLoop_KeywordFallback(t *testing.T) {
	b := &builder{}
	for i := 0; i < 3; i++ {
		b.call(sec(i*2), sec(i*2+1), "Bash", nil, false, "bash: gx: command not found")
	}
	s := b.session()
	for i := range s.Invocations {
		s.Invocations[i].Result.HasErrorFlag = false
	}
	if got := (errorLoopDetector{}).Detect(s, DefaultConfig()); len(got) != 1 {
		t.Errorf("findings = %d, want 1 from failure keywords", len(got))
	}
}

func TestErrorLoop_ConfigurableThreshold(t *testing.T) {
	b := &builder{}
	b.call(sec(0), sec(1), "Bash", nil, true, "")
	b.call(sec(2), sec(3), "Bash", nil, true, "")
	cfg := DefaultConfig()
	cfg.ErrorLoopMinFailures = 2
	if got := (errorLoopDetector{}).Detect(b.session(), cfg); len(got) != 1 {
		t.Errorf("findings = %d, want 1 with threshold 2", len(got))
	}
}

func TestErrorLoop_PrecedingPrompt(t *testing.T) {
	b := &builder{}
	b.user(sec(0), "make the tests pass")
	for i := 1; i <= 3; i++ {
		b.call(sec(i*2), sec(i*2+1), "Bash", nil, true, "")
	}
	got := errorLoopDetector{}.Detect(b.session(), DefaultConfig())
	if len(got) != 1 || got[0].PrecedingPrompt != "make the tests pass" {
		t.Errorf("findings = %+v, want preceding prompt", got)
	}
}
