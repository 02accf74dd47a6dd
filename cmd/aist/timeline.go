package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/interval"
	"github.com/ConfabulousDev/aist/internal/pipeline"
)

var timelineMaxDepth int

var timelineCmd = &cobra.Command{
	Use:   "timeline [session-id|latest] [paths...]",
	Short: "Print the nested interval tree of one session",
	Long: `Prints a session and its sub-agents as nested intervals, offsets relative
to the session start. Durations marked ~ were assigned because the call
could not be timed. The session id may be a unique prefix; without one,
or with "latest", the most recently started session is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id := "latest"
		if len(args) > 0 {
			id, args = args[0], args[1:]
		}
		res, err := analyzeSessions(cmd, args)
		if err != nil {
			return err
		}

		a, ok := findSession(res, id)
		if !ok {
			return fmt.Errorf("no unique session matches %q", id)
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), struct {
				Timeline  *interval.Node                      `json:"timeline"`
				Breakdown map[interval.Activity]time.Duration `json:"activity_breakdown"`
			}{a.Timeline, interval.ActivityBreakdown(a.Timeline)})
		}

		out := cmd.OutOrStdout()
		printNode(out, a.Timeline)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Measured tool time:")
		breakdown := interval.ActivityBreakdown(a.Timeline)
		for _, act := range activityOrder {
			if d, ok := breakdown[act]; ok {
				fmt.Fprintf(out, "  %-12s %s\n", act, formatDuration(d))
			}
		}
		return nil
	},
}

func findSession(res *pipeline.Result, id string) (*pipeline.Analysis, bool) {
	if id == "latest" {
		return res.Latest()
	}
	return res.Find(id)
}

var activityOrder = []interval.Activity{
	interval.ActivityProductive,
	interval.ActivityReading,
	interval.ActivityExecuting,
	interval.ActivityDelegating,
	interval.ActivityError,
	interval.ActivityOther,
}

func printNode(w io.Writer, n *interval.Node) {
	if timelineMaxDepth > 0 && n.Depth > timelineMaxDepth {
		return
	}
	dur := formatDuration(n.Duration)
	if n.Synthetic {
		dur = "~" + dur
	} else if n.Widened {
		dur = "<" + dur
	}
	label := n.Label
	if n.Kind == interval.KindTool {
		label = fmt.Sprintf("%s [%s]", n.Label, n.Activity)
		if n.Failed {
			label += " FAILED"
		}
	}
	fmt.Fprintf(w, "%10s %9s  %s%s\n", "+"+formatDuration(n.StartOffset), dur, strings.Repeat("  ", n.Depth), label)
	for _, c := range n.Children {
		printNode(w, c)
	}
}

func init() {
	timelineCmd.Flags().IntVar(&timelineMaxDepth, "depth", 0, "deepest level to print, 0 for all")
	rootCmd.AddCommand(timelineCmd)
}
