package issues

import (
	"fmt"
	"sort"
	"time"

	"github.com/ConfabulousDev/aist/internal/metrics"
)

// Resolution records a branch that more than one PR used, and which PR
// the linker kept.
type Resolution struct {
	Branch    string `json:"branch"`
	Chosen    int    `json:"chosen_pr"`
	Discarded []int  `json:"discarded_prs"`
}

// Linker maps git branches to the PR that owns them. When several PRs
// share a branch, the most recently merged one wins; a merged PR beats an
// unmerged one, and equal merge times go to the higher PR number.
type Linker struct {
	byBranch    map[string]PRRecord
	resolutions []Resolution
}

// NewLinker indexes the PRs of the given caches.
func NewLinker(caches ...*RepoCache) *Linker {
	candidates := make(map[string][]PRRecord)
	for _, c := range caches {
		if c == nil {
			continue
		}
		for _, pr := range c.PRs {
			if pr.Branch == "" {
				continue
			}
			candidates[pr.Branch] = append(candidates[pr.Branch], pr)
		}
	}

	l := &Linker{byBranch: make(map[string]PRRecord, len(candidates))}
	for branch, prs := range candidates {
		sort.SliceStable(prs, func(i, j int) bool { return newer(prs[i], prs[j]) })
		l.byBranch[branch] = prs[0]
		if len(prs) > 1 {
			r := Resolution{Branch: branch, Chosen: prs[0].Number}
			for _, pr := range prs[1:] {
				r.Discarded = append(r.Discarded, pr.Number)
			}
			l.resolutions = append(l.resolutions, r)
		}
	}
	sort.Slice(l.resolutions, func(i, j int) bool {
		return l.resolutions[i].Branch < l.resolutions[j].Branch
	})
	return l
}

func newer(a, b PRRecord) bool {
	switch {
	case a.MergedAt != nil && b.MergedAt != nil:
		if !a.MergedAt.Equal(*b.MergedAt) {
			return a.MergedAt.After(*b.MergedAt)
		}
	case a.MergedAt != nil:
		return true
	case b.MergedAt != nil:
		return false
	}
	return a.Number > b.Number
}

// Resolutions lists the branches whose PR choice was ambiguous.
func (l *Linker) Resolutions() []Resolution {
	return l.resolutions
}

// Link returns the PR for a branch by exact name. A branch with no PR is
// not an error.
func (l *Linker) Link(branch string) (PRRecord, bool) {
	if branch == "" {
		return PRRecord{}, false
	}
	pr, ok := l.byBranch[branch]
	return pr, ok
}

// IssueKeys returns "#N" for every issue closed by the session's PR, for
// use with metrics.GroupBy.
func (l *Linker) IssueKeys(m metrics.SessionMetrics) []string {
	pr, ok := l.Link(m.GitBranch)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(pr.ClosedIssues))
	for _, n := range pr.ClosedIssues {
		keys = append(keys, fmt.Sprintf("#%d", n))
	}
	return keys
}

// IssueLink is the rollup of one issue. Every matched session contributes
// its full duration.
type IssueLink struct {
	IssueNumber     int               `json:"issue_number"`
	PRNumber        int               `json:"pr_number"`
	Title           string            `json:"title"`
	Branch          string            `json:"branch"`
	MergedAt        *time.Time        `json:"merged_at,omitempty"`
	MatchedSessions []string          `json:"matched_sessions"`
	Metrics         metrics.Aggregate `json:"metrics"`
}

// IssueRollup attributes sessions to every issue their PR closes. Sessions
// on unknown branches are left out. Result is ordered by time spent
// descending, then issue number.
func (l *Linker) IssueRollup(ms []metrics.SessionMetrics) []IssueLink {
	byIssue := make(map[int]*IssueLink)
	for _, m := range ms {
		pr, ok := l.Link(m.GitBranch)
		if !ok {
			continue
		}
		for _, n := range pr.ClosedIssues {
			link, ok := byIssue[n]
			if !ok {
				link = &IssueLink{
					IssueNumber: n,
					PRNumber:    pr.Number,
					Title:       pr.Title,
					Branch:      pr.Branch,
					MergedAt:    pr.MergedAt,
				}
				byIssue[n] = link
			}
			link.MatchedSessions = append(link.MatchedSessions, m.SessionID)
			link.Metrics = link.Metrics.Merge(metrics.FromSession(m))
		}
	}

	out := make([]IssueLink, 0, len(byIssue))
	for _, link := range byIssue {
		sort.Strings(link.MatchedSessions)
		out = append(out, *link)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metrics.Duration != out[j].Metrics.Duration {
			return out[i].Metrics.Duration > out[j].Metrics.Duration
		}
		return out[i].IssueNumber < out[j].IssueNumber
	})
	return out
}

// PRSummary is the rollup of one pull request.
type PRSummary struct {
	PRNumber        int               `json:"pr_number"`
	Title           string            `json:"title"`
	Branch          string            `json:"branch"`
	MergedAt        *time.Time        `json:"merged_at,omitempty"`
	ClosedIssues    []int             `json:"closed_issues"`
	MatchedSessions []string          `json:"matched_sessions"`
	Metrics         metrics.Aggregate `json:"metrics"`
}

// PRRollup groups sessions by the PR owning their branch.
func (l *Linker) PRRollup(ms []metrics.SessionMetrics) []PRSummary {
	byPR := make(map[int]*PRSummary)
	for _, m := range ms {
		pr, ok := l.Link(m.GitBranch)
		if !ok {
			continue
		}
		sum, ok := byPR[pr.Number]
		if !ok {
			sum = &PRSummary{
				PRNumber:     pr.Number,
				Title:        pr.Title,
				Branch:       pr.Branch,
				MergedAt:     pr.MergedAt,
				ClosedIssues: pr.ClosedIssues,
			}
			byPR[pr.Number] = sum
		}
		sum.MatchedSessions = append(sum.MatchedSessions, m.SessionID)
		sum.Metrics = sum.Metrics.Merge(metrics.FromSession(m))
	}

	out := make([]PRSummary, 0, len(byPR))
	for _, s := range byPR {
		sort.Strings(s.MatchedSessions)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metrics.Duration != out[j].Metrics.Duration {
			return out[i].Metrics.Duration > out[j].Metrics.Duration
		}
		return out[i].PRNumber < out[j].PRNumber
	})
	return out
}
