package issues

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExtractClosedIssues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []int
	}{
		{"empty", "", nil},
		{"closes", "Closes #123", []int{123}},
		{"fixes with colon", "Fixes: #45", []int{45}},
		{"mixed keywords", "This resolves #1 and fixed #2.\nAlso close #3", []int{1, 2, 3}},
		{"case insensitive", "FIXES #9", []int{9}},
		{"deduplicates", "closes #4, fixes #4, resolves #7", []int{4, 7}},
		{"plain mention ignored", "see #12 for context", nil},
		{"keyword inside word ignored", "prefixes #5", nil},
		{"resolved", "Resolved #88", []int{88}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractClosedIssues(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractClosedIssues(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestParseGitHubRemote(t *testing.T) {
	tests := []struct {
		url       string
		owner     string
		repo      string
		expectErr bool
	}{
		{"git@github.com:acme/widget.git", "acme", "widget", false},
		{"git@github.com:acme/widget", "acme", "widget", false},
		{"https://github.com/acme/widget.git", "acme", "widget", false},
		{"https://github.com/acme/widget", "acme", "widget", false},
		{"https://token@github.com/acme/widget.git\n", "acme", "widget", false},
		{"ssh://git@github.com/acme/widget.git", "acme", "widget", false},
		{"https://gitlab.com/acme/widget.git", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, repo, err := ParseGitHubRemote(tt.url)
			if tt.expectErr {
				if err == nil {
					t.Errorf("ParseGitHubRemote(%q) expected error", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGitHubRemote(%q) error: %v", tt.url, err)
			}
			if owner != tt.owner || repo != tt.repo {
				t.Errorf("ParseGitHubRemote(%q) = %s/%s, want %s/%s", tt.url, owner, repo, tt.owner, tt.repo)
			}
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := CachePath(dir, "acme", "widget")

	if _, err := LoadCache(path); !errors.Is(err, ErrCacheNotFound) {
		t.Fatalf("LoadCache on missing file = %v, want ErrCacheNotFound", err)
	}

	cache := &RepoCache{
		Owner:    "acme",
		Repo:     "widget",
		SyncedAt: t0,
		PRs: []PRRecord{
			{Number: 3, Title: "Add thing", Branch: "feature/thing", MergedAt: mergedAt(1), ClosedIssues: []int{4, 7}},
		},
	}
	if err := SaveCache(path, cache); err != nil {
		t.Fatalf("SaveCache failed: %v", err)
	}

	got, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache failed: %v", err)
	}
	if got.Owner != "acme" || len(got.PRs) != 1 || got.PRs[0].Branch != "feature/thing" {
		t.Errorf("loaded cache = %+v", got)
	}
	if !reflect.DeepEqual(got.PRs[0].ClosedIssues, []int{4, 7}) {
		t.Errorf("ClosedIssues = %v, want [4 7]", got.PRs[0].ClosedIssues)
	}
	if !got.SyncedAt.Equal(t0) || !got.PRs[0].MergedAt.Equal(*mergedAt(1)) {
		t.Errorf("timestamps not preserved: %v / %v", got.SyncedAt, got.PRs[0].MergedAt)
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()

	caches, err := LoadCaches(filepath.Join(dir, "missing"))
	if err != nil || len(caches) != 0 {
		t.Fatalf("LoadCaches on missing dir = %v, %v; want none", caches, err)
	}

	for _, repo := range []string{"widget", "gadget"} {
		if err := SaveCache(CachePath(dir, "acme", repo), &RepoCache{Owner: "acme", Repo: repo}); err != nil {
			t.Fatal(err)
		}
	}
	caches, err = LoadCaches(dir)
	if err != nil {
		t.Fatalf("LoadCaches failed: %v", err)
	}
	if len(caches) != 2 || caches[0].Repo != "gadget" || caches[1].Repo != "widget" {
		t.Errorf("LoadCaches = %+v, want gadget then widget", caches)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCaches(dir); err == nil {
		t.Error("expected error for malformed cache")
	}
}
