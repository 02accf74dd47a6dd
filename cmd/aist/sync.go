package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/github"
	"github.com/ConfabulousDev/aist/internal/issues"
)

var syncRepo string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch merged pull requests for issue linking",
	Long: `Fetches merged pull requests of a GitHub repository and caches their
branches and closed issues. The repository defaults to the origin remote of
the current directory. Set GITHUB_TOKEN for private repositories and higher
rate limits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		owner, repo, err := resolveRepo(cmd)
		if err != nil {
			return err
		}

		client := github.NewClient(cfg.GitHub.Token,
			github.WithBaseURL(cfg.GitHub.APIURL),
			github.WithRateLimit(cfg.GitHub.RequestsPerSecond),
		)
		cache, err := github.Sync(ctx, client, cfg.Paths.CacheDir, owner, repo)
		if err != nil {
			return fmt.Errorf("failed to sync %s/%s: %w", owner, repo, err)
		}

		linked := 0
		for _, pr := range cache.PRs {
			if len(pr.ClosedIssues) > 0 {
				linked++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d merged pull requests for %s/%s (%d close issues)\n",
			len(cache.PRs), owner, repo, linked)
		fmt.Fprintf(cmd.OutOrStdout(), "Cache: %s\n", issues.CachePath(cfg.Paths.CacheDir, owner, repo))
		return nil
	},
}

// resolveRepo takes --repo owner/name, or the origin remote of the
// current directory.
func resolveRepo(cmd *cobra.Command) (string, string, error) {
	if syncRepo != "" {
		owner, repo, ok := strings.Cut(syncRepo, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return "", "", fmt.Errorf("--repo must be owner/name, got %q", syncRepo)
		}
		return owner, repo, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	url, err := originURL(cmd.Context(), cwd)
	if err != nil {
		return "", "", fmt.Errorf("%w; pass --repo owner/name", err)
	}
	return issues.ParseGitHubRemote(url)
}

func init() {
	syncCmd.Flags().StringVar(&syncRepo, "repo", "", "GitHub repository as owner/name")
	rootCmd.AddCommand(syncCmd)
}
