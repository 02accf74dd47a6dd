package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
	"github.com/ConfabulousDev/aist/internal/metrics"
	"github.com/ConfabulousDev/aist/internal/report"
)

var reportPeriod string

var reportCmd = &cobra.Command{
	Use:   "report [paths...]",
	Short: "Weekly-style summary with time breakdown and recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeSessions(cmd, args)
		if err != nil {
			return err
		}

		r := report.Build(res.Analyses, metrics.ParsePeriod(reportPeriod), time.Now())
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), r)
		}
		printReport(cmd, r)
		return nil
	},
}

func printReport(cmd *cobra.Command, r *report.Report) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "=== Report: %s (%d-W%02d) ===\n", r.Period, r.ISOYear, r.ISOWeek)
	fmt.Fprintf(out, "Sessions:    %d (%d timed)\n", r.SessionCount, r.TimedSessions)
	fmt.Fprintf(out, "Total time:  %s\n", formatDuration(r.TotalDuration))
	fmt.Fprintf(out, "Efficiency:  %s\n", formatPercent(r.EfficiencyPercent))
	fmt.Fprintf(out, "Cost:        %s\n", formatCost(r.Cost))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Where the time went:")
	fmt.Fprintf(out, "  %-20s %s\n", "Productive", formatDuration(r.TimeBreakdown.Productive))
	for _, k := range bottleneck.Kinds {
		if d, ok := r.TimeBreakdown.ByKind[k]; ok && d > 0 {
			fmt.Fprintf(out, "  %-20s %s\n", k.Title(), formatDuration(d))
		}
	}
	fmt.Fprintln(out)

	if len(r.TopBottlenecks) > 0 {
		fmt.Fprintln(out, "Top bottlenecks:")
		for i, s := range r.TopBottlenecks {
			fmt.Fprintf(out, "  %d. %s: %s (%s)\n", i+1, s.Title, s.Description, formatDuration(s.WastedTime))
		}
		fmt.Fprintln(out)
	}

	if len(r.ByProject) > 0 {
		fmt.Fprintln(out, "By project:")
		for _, p := range r.ByProject {
			fmt.Fprintf(out, "  %-24s %3d sessions  %9s  %4s  %s\n", p.Name, p.SessionCount,
				formatDuration(p.Duration), formatPercent(p.EfficiencyPercent), formatCost(p.Cost))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Recommendations:")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(out, "  - %s\n", rec)
	}
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "week", "day, week, month or all")
	rootCmd.AddCommand(reportCmd)
}
