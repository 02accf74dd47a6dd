// Package issues links sessions to issues through pull requests that share
// the session's git branch.
package issues

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// PRRecord is one merged pull request as stored in the cache.
type PRRecord struct {
	Number       int        `json:"pr_number"`
	Title        string     `json:"title"`
	Branch       string     `json:"branch"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	ClosedIssues []int      `json:"closed_issues"`
}

// RepoCache holds the pull requests of one repository.
type RepoCache struct {
	Owner    string     `json:"owner"`
	Repo     string     `json:"repo"`
	PRs      []PRRecord `json:"prs"`
	SyncedAt time.Time  `json:"synced_at"`
}

// ErrCacheNotFound is returned when no cache file exists for a repository.
var ErrCacheNotFound = errors.New("repository cache not found")

// CachePath returns the cache file for owner/repo under dir.
func CachePath(dir, owner, repo string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", owner, repo))
}

// LoadCache reads a cache file.
func LoadCache(path string) (*RepoCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCacheNotFound, path)
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	var cache RepoCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache %s: %w", path, err)
	}
	return &cache, nil
}

// SaveCache writes a cache file, creating its directory.
func SaveCache(path string, cache *RepoCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadCaches reads every cache file in dir, in file name order. A missing
// dir yields no caches.
func LoadCaches(dir string) ([]*RepoCache, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	sort.Strings(paths)

	caches := make([]*RepoCache, 0, len(paths))
	for _, p := range paths {
		c, err := LoadCache(p)
		if err != nil {
			return nil, err
		}
		caches = append(caches, c)
	}
	return caches, nil
}
