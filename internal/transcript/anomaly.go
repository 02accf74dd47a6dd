package transcript

import "fmt"

// AnomalyKind classifies a non-fatal data problem.
type AnomalyKind string

const (
	MalformedRecord     AnomalyKind = "malformed_record"
	UnmatchedToolResult AnomalyKind = "unmatched_tool_result"
	PendingToolUse      AnomalyKind = "pending_tool_use"
	MissingTimestamp    AnomalyKind = "missing_timestamp"
	OrphanSubagent      AnomalyKind = "orphan_subagent"
	SessionFailed       AnomalyKind = "session_failed"
)

// Anomaly records something unexpected in the input. Anomalies are
// reported alongside results and never stop processing.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	SessionID string      `json:"session_id,omitempty"`
	Source    string      `json:"source,omitempty"`
	Line      int         `json:"line,omitempty"`
	Detail    string      `json:"detail"`
}

func (a Anomaly) String() string {
	if a.Line > 0 {
		return fmt.Sprintf("%s %s:%d: %s", a.Kind, a.Source, a.Line, a.Detail)
	}
	return fmt.Sprintf("%s %s: %s", a.Kind, a.Source, a.Detail)
}

// CountByKind tallies anomalies per kind.
func CountByKind(anomalies []Anomaly) map[AnomalyKind]int {
	counts := make(map[AnomalyKind]int)
	for _, a := range anomalies {
		counts[a.Kind]++
	}
	return counts
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
