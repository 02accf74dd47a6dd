package github

import (
	"context"
	"sort"
	"time"

	"github.com/ConfabulousDev/aist/internal/issues"
	"github.com/ConfabulousDev/aist/internal/logger"
)

// BuildCache converts merged pull requests into a linker cache. Closed
// issues come from closing keywords in each PR body.
func BuildCache(owner, repo string, prs []PullRequest, now time.Time) *issues.RepoCache {
	cache := &issues.RepoCache{
		Owner:    owner,
		Repo:     repo,
		SyncedAt: now.UTC(),
		PRs:      make([]issues.PRRecord, 0, len(prs)),
	}
	for _, pr := range prs {
		closed := issues.ExtractClosedIssues(pr.Body)
		if closed == nil {
			closed = []int{}
		}
		cache.PRs = append(cache.PRs, issues.PRRecord{
			Number:       pr.Number,
			Title:        pr.Title,
			Branch:       pr.Branch(),
			MergedAt:     pr.MergedAt,
			ClosedIssues: closed,
		})
	}
	sort.Slice(cache.PRs, func(i, j int) bool {
		return cache.PRs[i].Number < cache.PRs[j].Number
	})
	return cache
}

// Sync fetches merged PRs for owner/repo and writes the cache under dir.
func Sync(ctx context.Context, c *Client, dir, owner, repo string) (*issues.RepoCache, error) {
	prs, err := c.ListMergedPullRequests(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	cache := BuildCache(owner, repo, prs, time.Now())
	path := issues.CachePath(dir, owner, repo)
	if err := issues.SaveCache(path, cache); err != nil {
		return nil, err
	}

	linked := 0
	for _, pr := range cache.PRs {
		if len(pr.ClosedIssues) > 0 {
			linked++
		}
	}
	logger.Ctx(ctx).Info("synced pull requests",
		"owner", owner,
		"repo", repo,
		"merged_prs", len(cache.PRs),
		"prs_with_issues", linked,
		"cache", path)
	return cache, nil
}
