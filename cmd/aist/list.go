package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/metrics"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list [paths...]",
	Short: "List sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeSessions(cmd, args)
		if err != nil {
			return err
		}

		ms := recentFirst(res.Metrics())
		if listLimit > 0 && len(ms) > listLimit {
			ms = ms[:listLimit]
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), ms)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tSTARTED\tPROJECT\tBRANCH\tDURATION\tCALLS\tFINDINGS\tCOST")
		for _, m := range ms {
			started := "-"
			if m.StartTime != nil {
				started = m.StartTime.Local().Format("2006-01-02 15:04")
			}
			findings := 0
			for _, n := range m.BottleneckCounts {
				findings += n
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n", shortID(m.SessionID), started, m.Project,
				m.GitBranch, formatDuration(m.Duration), m.InvocationCount, findings, formatCost(m.Cost))
		}
		return tw.Flush()
	},
}

// recentFirst reverses the pipeline's chronological order, keeping
// untimed sessions last.
func recentFirst(ms []metrics.SessionMetrics) []metrics.SessionMetrics {
	out := make([]metrics.SessionMetrics, 0, len(ms))
	for i := len(ms) - 1; i >= 0; i-- {
		if ms[i].StartTime != nil {
			out = append(out, ms[i])
		}
	}
	for _, m := range ms {
		if m.StartTime == nil {
			out = append(out, m)
		}
	}
	return out
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "sessions to show, 0 for all")
	rootCmd.AddCommand(listCmd)
}
