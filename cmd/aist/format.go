package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatDuration renders durations the way people read them: 2h 05m,
// 4m 10s, 12s, 350ms.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

func formatCost(c decimal.Decimal) string {
	return "$" + c.StringFixed(2)
}

func formatCount(n int64) string {
	return humanize.Comma(n)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

// describeFinding summarizes a finding's payload in one line.
func describeFinding(b *bottleneck.Bottleneck) string {
	switch {
	case b.ErrorLoop != nil:
		return fmt.Sprintf("%s failed %d times in a row", b.ErrorLoop.ToolName, b.ErrorLoop.FailureCount)
	case b.ExplorationSpiral != nil:
		return fmt.Sprintf("%d reads across %d files without an edit", b.ExplorationSpiral.ReadCount, len(b.ExplorationSpiral.Files))
	case b.EditThrashing != nil:
		return fmt.Sprintf("%s edited %d times", b.EditThrashing.FilePath, b.EditThrashing.EditCount)
	case b.LongGap != nil:
		return fmt.Sprintf("idle %s after %s", formatDuration(b.LongGap.Gap), b.LongGap.Before.Kind)
	case b.SubagentOverhead != nil:
		s := b.SubagentOverhead
		return fmt.Sprintf("agent %s: %d messages, %s out for %s prompt", s.SubagentID, s.MessageCount,
			humanize.Bytes(uint64(s.OutputSize)), humanize.Bytes(uint64(s.PromptSize)))
	}
	return string(b.Kind)
}
