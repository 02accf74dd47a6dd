package issues

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Matches: closes #4, Fixes: #12, resolved #7
	closingPattern = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\b:?\s*#(\d+)`)
	// Matches: git@github.com:owner/repo.git
	sshRemotePattern = regexp.MustCompile(`^(?:ssh://)?git@github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// Matches: https://github.com/owner/repo(.git)
	httpsRemotePattern = regexp.MustCompile(`^https?://(?:[^@/]+@)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// ExtractClosedIssues returns the issue numbers a PR body closes, in order
// of first mention.
func ExtractClosedIssues(body string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range closingPattern.FindAllStringSubmatch(body, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ParseGitHubRemote extracts owner and repo from an SSH or HTTPS remote URL.
func ParseGitHubRemote(url string) (owner, repo string, err error) {
	url = strings.TrimSpace(url)
	for _, p := range []*regexp.Regexp{sshRemotePattern, httpsRemotePattern} {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("not a GitHub remote: %q", url)
}
