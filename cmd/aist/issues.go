package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/issues"
	"github.com/ConfabulousDev/aist/internal/logger"
	"github.com/ConfabulousDev/aist/internal/metrics"
)

var issuesPeriod string

var issuesCmd = &cobra.Command{
	Use:   "issues [paths...]",
	Short: "Time and cost per closed issue, via merged PR branches",
	Long: `Links each session's git branch to the merged pull request that used it,
then credits the session to every issue that PR closes. Run 'aist sync'
in a repository first to fetch its pull requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		linker, ms, err := linkSessions(cmd, args, issuesPeriod)
		if err != nil {
			return err
		}
		rollup := linker.IssueRollup(ms)

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), rollup)
		}
		out := cmd.OutOrStdout()
		if len(rollup) == 0 {
			fmt.Fprintln(out, "No sessions matched a merged pull request.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ISSUE\tPR\tSESSIONS\tDURATION\tCOST\tTITLE")
		for _, l := range rollup {
			fmt.Fprintf(tw, "#%d\t#%d\t%d\t%s\t%s\t%s\n", l.IssueNumber, l.PRNumber, l.Metrics.Sessions,
				formatDuration(l.Metrics.Duration), formatCost(l.Metrics.Cost), oneLine(l.Title, 60))
		}
		return tw.Flush()
	},
}

var prsPeriod string

var prsCmd = &cobra.Command{
	Use:   "prs [paths...]",
	Short: "Time and cost per merged pull request",
	RunE: func(cmd *cobra.Command, args []string) error {
		linker, ms, err := linkSessions(cmd, args, prsPeriod)
		if err != nil {
			return err
		}
		rollup := linker.PRRollup(ms)

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), rollup)
		}
		out := cmd.OutOrStdout()
		if len(rollup) == 0 {
			fmt.Fprintln(out, "No sessions matched a merged pull request.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PR\tBRANCH\tSESSIONS\tDURATION\tCOST\tCLOSES")
		for _, s := range rollup {
			fmt.Fprintf(tw, "#%d\t%s\t%d\t%s\t%s\t%s\n", s.PRNumber, s.Branch, s.Metrics.Sessions,
				formatDuration(s.Metrics.Duration), formatCost(s.Metrics.Cost), issueList(s.ClosedIssues))
		}
		return tw.Flush()
	},
}

// linkSessions analyzes sessions and builds a linker from every synced
// repository cache.
func linkSessions(cmd *cobra.Command, args []string, period string) (*issues.Linker, []metrics.SessionMetrics, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	caches, err := issues.LoadCaches(cfg.Paths.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	if len(caches) == 0 {
		return nil, nil, fmt.Errorf("no pull request caches in %s; run 'aist sync' in a repository first", cfg.Paths.CacheDir)
	}

	res, err := runPipeline(cmd.Context(), cfg, args)
	if err != nil {
		return nil, nil, err
	}

	linker := issues.NewLinker(caches...)
	for _, r := range linker.Resolutions() {
		logger.Debug("branch used by several pull requests",
			"branch", r.Branch, "chosen_pr", r.Chosen, "discarded_prs", r.Discarded)
	}
	ms := metrics.FilterByPeriod(res.Metrics(), metrics.ParsePeriod(period), time.Now())
	return linker, ms, nil
}

func issueList(ns []int) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	return strings.Join(parts, ", ")
}

func init() {
	issuesCmd.Flags().StringVar(&issuesPeriod, "period", "all", "day, week, month or all")
	prsCmd.Flags().StringVar(&prsPeriod, "period", "all", "day, week, month or all")
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(prsCmd)
}
