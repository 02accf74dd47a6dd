// Package report summarizes a run for a time period: where the time went,
// which bottlenecks cost the most, and what to do about them.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
	"github.com/ConfabulousDev/aist/internal/metrics"
	"github.com/ConfabulousDev/aist/internal/pipeline"
)

// maxWorst caps the individual findings listed in a report.
const maxWorst = 10

// Report is the period summary.
type Report struct {
	Period       metrics.Period `json:"period"`
	ISOYear      int            `json:"iso_year"`
	ISOWeek      int            `json:"iso_week"`
	GeneratedAt  time.Time      `json:"generated_at"`
	SessionCount int            `json:"session_count"`

	// TimedSessions excludes sessions without timestamps.
	TimedSessions     int                     `json:"timed_sessions"`
	TotalDuration     time.Duration           `json:"total_duration"`
	EfficiencyPercent float64                 `json:"efficiency_percent"`
	Cost              decimal.Decimal         `json:"cost"`
	Tokens            metrics.Tokens          `json:"tokens"`
	TimeBreakdown     TimeBreakdown           `json:"time_breakdown"`
	TopBottlenecks    []KindSummary           `json:"top_bottlenecks"`
	Worst             []bottleneck.Bottleneck `json:"worst"`
	ByProject         []ProjectReport         `json:"by_project"`
	Recommendations   []string                `json:"recommendations"`
}

// TimeBreakdown splits total session time by bottleneck kind. When the
// per-kind times add up to more than the total they are scaled down
// proportionally.
type TimeBreakdown struct {
	Productive time.Duration                     `json:"productive"`
	ByKind     map[bottleneck.Kind]time.Duration `json:"by_kind"`
}

// KindSummary totals the findings of one kind.
type KindSummary struct {
	Kind        bottleneck.Kind `json:"kind"`
	Title       string          `json:"title"`
	Count       int             `json:"count"`
	WastedTime  time.Duration   `json:"wasted_time"`
	Description string          `json:"description"`
}

// ProjectReport is one row of the per-project table.
type ProjectReport struct {
	Name              string          `json:"name"`
	SessionCount      int             `json:"session_count"`
	Duration          time.Duration   `json:"duration"`
	EfficiencyPercent float64         `json:"efficiency_percent"`
	Cost              decimal.Decimal `json:"cost"`
}

// Build summarizes the analyses whose sessions ended within period before now.
func Build(analyses []pipeline.Analysis, period metrics.Period, now time.Time) *Report {
	var selected []pipeline.Analysis
	var ms []metrics.SessionMetrics
	var findings []bottleneck.Bottleneck
	for _, a := range analyses {
		if !period.Contains(a.Metrics.EndTime, now) {
			continue
		}
		selected = append(selected, a)
		ms = append(ms, a.Metrics)
		findings = append(findings, a.Bottlenecks...)
	}

	agg := metrics.Sum(ms)
	year, week := now.ISOWeek()
	return &Report{
		Period:            period,
		ISOYear:           year,
		ISOWeek:           week,
		GeneratedAt:       now,
		SessionCount:      agg.Sessions,
		TimedSessions:     agg.TimedSessions,
		TotalDuration:     agg.Duration,
		EfficiencyPercent: percent(agg.Efficiency()),
		Cost:              agg.Cost,
		Tokens:            agg.Tokens,
		TimeBreakdown:     breakdown(selected, agg.Duration),
		TopBottlenecks:    summarize(findings),
		Worst:             worst(findings),
		ByProject:         projects(ms),
		Recommendations:   Recommendations(findings),
	}
}

// percent renders an efficiency ratio; no measurable time counts as fully
// efficient.
func percent(e *float64) float64 {
	if e == nil {
		return 100
	}
	return *e * 100
}

// breakdown unions each kind's spans within each session, so overlapping
// findings of one kind count once.
func breakdown(analyses []pipeline.Analysis, total time.Duration) TimeBreakdown {
	byKind := make(map[bottleneck.Kind]time.Duration)
	for _, a := range analyses {
		m := a.Metrics
		if !m.Timed {
			continue
		}
		perKind := make(map[bottleneck.Kind][]bottleneck.Bottleneck)
		for _, b := range a.Bottlenecks {
			perKind[b.Kind] = append(perKind[b.Kind], b)
		}
		for kind, bs := range perKind {
			byKind[kind] += metrics.UnionWithin(metrics.FindingSpans(bs), *m.StartTime, *m.EndTime)
		}
	}

	var wasted time.Duration
	for _, d := range byKind {
		wasted += d
	}
	if wasted > total && wasted > 0 {
		scale := float64(total) / float64(wasted)
		for k, d := range byKind {
			byKind[k] = time.Duration(float64(d) * scale)
		}
		wasted = 0
		for _, d := range byKind {
			wasted += d
		}
	}

	productive := total - wasted
	if productive < 0 {
		productive = 0
	}
	return TimeBreakdown{Productive: productive, ByKind: byKind}
}

func summarize(findings []bottleneck.Bottleneck) []KindSummary {
	byKind := make(map[bottleneck.Kind]*KindSummary)
	for i := range findings {
		b := &findings[i]
		s, ok := byKind[b.Kind]
		if !ok {
			s = &KindSummary{Kind: b.Kind, Title: b.Kind.Title()}
			byKind[b.Kind] = s
		}
		s.Count++
		s.WastedTime += b.WastedTime()
	}

	var out []KindSummary
	for _, k := range bottleneck.Kinds {
		if s, ok := byKind[k]; ok {
			s.Description = describe(k, s.Count)
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WastedTime > out[j].WastedTime
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func describe(k bottleneck.Kind, n int) string {
	switch k {
	case bottleneck.KindErrorLoop:
		return fmt.Sprintf("%d runs of repeated tool failures", n)
	case bottleneck.KindExplorationSpiral:
		return fmt.Sprintf("%d search stretches without edits", n)
	case bottleneck.KindEditThrashing:
		return fmt.Sprintf("%d files edited over and over", n)
	case bottleneck.KindLongGap:
		return fmt.Sprintf("%d long pauses", n)
	case bottleneck.KindSubagentOverhead:
		return fmt.Sprintf("%d sub-agents that returned little", n)
	}
	return fmt.Sprintf("%d occurrences", n)
}

func worst(findings []bottleneck.Bottleneck) []bottleneck.Bottleneck {
	out := make([]bottleneck.Bottleneck, len(findings))
	copy(out, findings)
	bottleneck.ByWastedTime(out)
	if len(out) > maxWorst {
		out = out[:maxWorst]
	}
	return out
}

func projects(ms []metrics.SessionMetrics) []ProjectReport {
	groups := metrics.GroupBy(ms, metrics.ByProject)
	out := make([]ProjectReport, 0, len(groups))
	for _, name := range metrics.Keys(groups) {
		g := groups[name]
		out = append(out, ProjectReport{
			Name:              name,
			SessionCount:      g.Sessions,
			Duration:          g.Duration,
			EfficiencyPercent: percent(g.Efficiency()),
			Cost:              g.Cost,
		})
	}
	return out
}

// Recommendations returns one suggestion per bottleneck kind present, or
// a single all-clear message.
func Recommendations(findings []bottleneck.Bottleneck) []string {
	present := make(map[bottleneck.Kind]bool)
	for i := range findings {
		present[findings[i].Kind] = true
	}

	var out []string
	for _, k := range bottleneck.Kinds {
		if !present[k] {
			continue
		}
		switch k {
		case bottleneck.KindErrorLoop:
			out = append(out, "Check PATH and dependencies for tools that keep failing")
		case bottleneck.KindExplorationSpiral:
			out = append(out, "Add project context to CLAUDE.md to cut down on searching")
		case bottleneck.KindEditThrashing:
			out = append(out, "Break large changes into smaller, focused tasks")
		case bottleneck.KindLongGap:
			out = append(out, "Review stalled sessions for unclear requirements")
		case bottleneck.KindSubagentOverhead:
			out = append(out, "Give sub-agents self-contained tasks or do small lookups directly")
		}
	}
	if len(out) == 0 {
		out = append(out, "No significant bottlenecks detected")
	}
	return out
}
