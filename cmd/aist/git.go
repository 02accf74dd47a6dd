package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// originURL returns the origin remote of the repository containing dir.
func originURL(ctx context.Context, dir string) (string, error) {
	out, err := gitCommand(ctx, dir, "config", "--get", "remote.origin.url")
	if err != nil {
		return "", fmt.Errorf("no origin remote in %s: %w", dir, err)
	}
	url := strings.TrimSpace(out)
	if url == "" {
		return "", fmt.Errorf("no origin remote in %s", dir)
	}
	return url, nil
}

// gitCommand runs a git command in the specified directory
func gitCommand(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}
