package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
	"github.com/ConfabulousDev/aist/internal/metrics"
	"github.com/ConfabulousDev/aist/internal/pipeline"
)

var (
	bottleneckKind   string
	bottleneckLimit  int
	bottleneckPeriod string
)

var bottlenecksCmd = &cobra.Command{
	Use:   "bottlenecks [paths...]",
	Short: "List detected bottlenecks, worst first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bottleneckKind != "" && !knownKind(bottleneck.Kind(bottleneckKind)) {
			return fmt.Errorf("unknown kind %q", bottleneckKind)
		}
		res, err := analyzeSessions(cmd, args)
		if err != nil {
			return err
		}

		findings := selectFindings(res.Analyses, metrics.ParsePeriod(bottleneckPeriod), time.Now())
		if bottleneckLimit > 0 && len(findings) > bottleneckLimit {
			findings = findings[:bottleneckLimit]
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), findings)
		}
		out := cmd.OutOrStdout()
		if len(findings) == 0 {
			fmt.Fprintln(out, "No bottlenecks found.")
			return nil
		}
		for i := range findings {
			b := &findings[i]
			fmt.Fprintf(out, "%-18s %8s  %s  %s\n", b.Kind.Title(), formatDuration(b.WastedTime()), shortID(b.SessionID), b.Project)
			fmt.Fprintf(out, "    %s\n", describeFinding(b))
			if b.PrecedingPrompt != "" {
				fmt.Fprintf(out, "    after: %q\n", oneLine(b.PrecedingPrompt, 100))
			}
		}
		return nil
	},
}

func knownKind(k bottleneck.Kind) bool {
	for _, known := range bottleneck.Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// selectFindings returns the findings of sessions in period, filtered by
// --kind and ranked by wasted time.
func selectFindings(analyses []pipeline.Analysis, period metrics.Period, now time.Time) []bottleneck.Bottleneck {
	var out []bottleneck.Bottleneck
	for _, a := range analyses {
		if !period.Contains(a.Metrics.EndTime, now) {
			continue
		}
		for _, b := range a.Bottlenecks {
			if bottleneckKind == "" || b.Kind == bottleneck.Kind(bottleneckKind) {
				out = append(out, b)
			}
		}
	}
	bottleneck.ByWastedTime(out)
	return out
}

func init() {
	bottlenecksCmd.Flags().StringVar(&bottleneckKind, "kind", "", "only this kind (error_loop, exploration_spiral, edit_thrashing, long_gap, subagent_overhead)")
	bottlenecksCmd.Flags().IntVar(&bottleneckLimit, "limit", 10, "maximum findings to print, 0 for all")
	bottlenecksCmd.Flags().StringVar(&bottleneckPeriod, "period", "all", "day, week, month or all")
	rootCmd.AddCommand(bottlenecksCmd)
}
