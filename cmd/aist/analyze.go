package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/metrics"
	"github.com/ConfabulousDev/aist/internal/pipeline"
	"github.com/ConfabulousDev/aist/internal/transcript"
)

var (
	analyzePeriod string
	analyzeBy     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Summarize sessions, tokens, cost and efficiency",
	Long: `Analyzes every session and prints totals plus a per-project (or
per-session) table. Anomalies in the input are counted, never fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeSessions(cmd, args)
		if err != nil {
			return err
		}

		ms := metrics.FilterByPeriod(res.Metrics(), metrics.ParsePeriod(analyzePeriod), time.Now())
		key := metrics.ByProject
		if analyzeBy == "session" {
			key = metrics.BySession
		}
		groups := metrics.GroupBy(ms, key)

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), analyzeOutput{
				RunID:        res.RunID,
				Total:        metrics.Sum(ms),
				Groups:       groups,
				Sessions:     ms,
				Anomalies:    res.Anomalies,
				SourceErrors: sourceErrorStrings(res.SourceErrors),
			})
		}
		printAnalysis(cmd, res, ms, groups)
		return nil
	},
}

type analyzeOutput struct {
	RunID        string                       `json:"run_id"`
	Total        metrics.Aggregate            `json:"total"`
	Groups       map[string]metrics.Aggregate `json:"groups"`
	Sessions     []metrics.SessionMetrics     `json:"sessions"`
	Anomalies    []transcript.Anomaly         `json:"anomalies"`
	SourceErrors []string                     `json:"source_errors,omitempty"`
}

func sourceErrorStrings(errs []pipeline.SourceError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

func printAnalysis(cmd *cobra.Command, res *pipeline.Result, ms []metrics.SessionMetrics, groups map[string]metrics.Aggregate) {
	out := cmd.OutOrStdout()
	total := metrics.Sum(ms)

	fmt.Fprintln(out, "=== Session Analysis ===")
	fmt.Fprintf(out, "Sessions:    %d (%d timed)\n", total.Sessions, total.TimedSessions)
	fmt.Fprintf(out, "Duration:    %s\n", formatDuration(total.Duration))
	if e := total.Efficiency(); e != nil {
		fmt.Fprintf(out, "Efficiency:  %s\n", formatPercent(*e*100))
	}
	fmt.Fprintf(out, "Tool calls:  %s (%s failed, %.1f%%)\n",
		formatCount(int64(total.Invocations)), formatCount(int64(total.Errors)), total.ErrorRate()*100)
	fmt.Fprintf(out, "Tokens:      %s in / %s out\n",
		formatCount(total.Tokens.BillableInput()), formatCount(total.Tokens.Output))
	fmt.Fprintf(out, "Cost:        %s\n", formatCost(total.Cost))
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSESSIONS\tDURATION\tEFFICIENCY\tERRORS\tCOST")
	for _, name := range metrics.Keys(groups) {
		g := groups[name]
		eff := "-"
		if e := g.Efficiency(); e != nil {
			eff = formatPercent(*e * 100)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n",
			name, g.Sessions, formatDuration(g.Duration), eff, g.Errors, formatCost(g.Cost))
	}
	tw.Flush()

	if len(res.Anomalies) > 0 || len(res.SourceErrors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Input problems:")
		counts := transcript.CountByKind(res.Anomalies)
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-22s %d\n", k, counts[transcript.AnomalyKind(k)])
		}
		for _, e := range res.SourceErrors {
			fmt.Fprintf(out, "  unreadable: %s\n", e.Error())
		}
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePeriod, "period", "all", "day, week, month or all")
	analyzeCmd.Flags().StringVar(&analyzeBy, "by", "project", "group rows by project or session")
	rootCmd.AddCommand(analyzeCmd)
}
