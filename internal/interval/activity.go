package interval

import (
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
)

// Activity is the kind of work a tool call represents.
type Activity string

const (
	ActivityProductive Activity = "productive"
	ActivityReading    Activity = "reading"
	ActivityExecuting  Activity = "executing"
	ActivityDelegating Activity = "delegating"
	ActivityError      Activity = "error"
	ActivityOther      Activity = "other"
)

// Classify maps an invocation to an activity. Failures take precedence.
func Classify(inv *session.ToolInvocation) Activity {
	if inv.Failed() {
		return ActivityError
	}
	switch inv.Class() {
	case session.ClassEdit:
		return ActivityProductive
	case session.ClassRead:
		return ActivityReading
	case session.ClassExec:
		return ActivityExecuting
	case session.ClassTask:
		return ActivityDelegating
	}
	return ActivityOther
}

// ActivityBreakdown sums measured tool durations per activity. Synthetic
// durations are left out and widened calls count as zero.
func ActivityBreakdown(root *Node) map[Activity]time.Duration {
	out := make(map[Activity]time.Duration)
	root.Walk(func(n *Node) {
		if n.Kind == KindTool && !n.Synthetic && !n.Widened {
			out[n.Activity] += n.Duration
		}
	})
	return out
}
