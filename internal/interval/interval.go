// Package interval builds the nested time-interval model used for
// flamegraphs and duration rollups.
package interval

import (
	"fmt"
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
)

// DefaultSyntheticDuration is the width given to calls whose duration
// cannot be measured.
const DefaultSyntheticDuration = 100 * time.Millisecond

// NodeKind distinguishes session nodes from tool call nodes.
type NodeKind string

const (
	KindSession NodeKind = "session"
	KindTool    NodeKind = "tool"
)

// Node is one interval. Offsets are relative to the earliest timestamp in
// the tree, so the root starts at zero.
type Node struct {
	Label       string        `json:"label"`
	Kind        NodeKind      `json:"kind"`
	Activity    Activity      `json:"activity,omitempty"`
	Depth       int           `json:"depth"`
	StartOffset time.Duration `json:"start_offset"`
	Duration    time.Duration `json:"duration"`
	// Synthetic marks a duration that was assigned because the call could
	// not be measured. Widened marks a measured zero duration drawn at the
	// synthetic width.
	Synthetic bool    `json:"synthetic,omitempty"`
	Widened   bool    `json:"widened,omitempty"`
	Failed    bool    `json:"failed,omitempty"`
	SessionID string  `json:"session_id"`
	ToolUseID string  `json:"tool_use_id,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// End is the offset at which the interval ends.
func (n *Node) End() time.Duration {
	return n.StartOffset + n.Duration
}

// Walk visits n and its descendants depth-first, parents first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// MaxDepth returns the deepest depth in the tree.
func (n *Node) MaxDepth() int {
	deepest := n.Depth
	n.Walk(func(c *Node) {
		if c.Depth > deepest {
			deepest = c.Depth
		}
	})
	return deepest
}

// Options tune Build.
type Options struct {
	SyntheticDuration time.Duration
}

func (o Options) synthetic() time.Duration {
	if o.SyntheticDuration > 0 {
		return o.SyntheticDuration
	}
	return DefaultSyntheticDuration
}

// Build converts a session tree into an interval tree. Each invocation and
// each child session sits one level below its session. Parents grow to
// contain their children; overlapping sub-agent intervals are kept as is.
func Build(root *session.Session, opts Options) *Node {
	b := builder{opts: opts}
	root.Walk(func(s *session.Session, _ int) {
		if s.StartTime != nil && (b.origin == nil || s.StartTime.Before(*b.origin)) {
			b.origin = s.StartTime
		}
		for i := range s.Invocations {
			if ts := s.Invocations[i].StartedAt; ts != nil && (b.origin == nil || ts.Before(*b.origin)) {
				b.origin = ts
			}
		}
	})
	return b.session(root, 0)
}

type builder struct {
	opts   Options
	origin *time.Time
}

func (b *builder) offset(t time.Time) time.Duration {
	return t.Sub(*b.origin)
}

func (b *builder) session(s *session.Session, depth int) *Node {
	n := &Node{
		Label:     sessionLabel(s),
		Kind:      KindSession,
		Depth:     depth,
		SessionID: s.Key(),
	}
	timed := false
	if s.Timed() {
		n.StartOffset = b.offset(*s.StartTime)
		n.Duration = s.EndTime.Sub(*s.StartTime)
		timed = true
	}

	cursor := n.StartOffset
	for i := range s.Invocations {
		c := b.tool(s, &s.Invocations[i], depth+1, cursor)
		cursor = c.End()
		n.Children = append(n.Children, c)
	}
	for _, child := range s.Children {
		n.Children = append(n.Children, b.session(child, depth+1))
	}
	cover(n, timed)
	return n
}

func (b *builder) tool(s *session.Session, inv *session.ToolInvocation, depth int, cursor time.Duration) *Node {
	n := &Node{
		Label:     inv.Name,
		Kind:      KindTool,
		Activity:  Classify(inv),
		Depth:     depth,
		Failed:    inv.Failed(),
		SessionID: s.Key(),
		ToolUseID: inv.ID,
	}
	if inv.StartedAt != nil {
		n.StartOffset = b.offset(*inv.StartedAt)
	} else {
		n.StartOffset = cursor
	}
	switch {
	case inv.StartedAt == nil || inv.Duration == nil:
		n.Duration = b.opts.synthetic()
		n.Synthetic = true
	case *inv.Duration <= 0:
		n.Duration = b.opts.synthetic()
		n.Widened = true
	default:
		n.Duration = *inv.Duration
	}
	return n
}

// cover stretches n to contain its children.
func cover(n *Node, timed bool) {
	if len(n.Children) == 0 {
		return
	}
	start, end := n.StartOffset, n.End()
	for i, c := range n.Children {
		if !timed && i == 0 {
			start, end = c.StartOffset, c.End()
			continue
		}
		if c.StartOffset < start {
			start = c.StartOffset
		}
		if c.End() > end {
			end = c.End()
		}
	}
	n.StartOffset = start
	n.Duration = end - start
}

func sessionLabel(s *session.Session) string {
	if s.AgentID != "" {
		return fmt.Sprintf("agent %s", s.AgentID)
	}
	return fmt.Sprintf("session %s", s.ID)
}
