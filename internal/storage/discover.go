package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ConfabulousDev/aist/internal/logger"
)

// Discover finds every session log under root, including sub-agent logs
// and compressed logs. Unreadable paths are logged and skipped. A missing
// root yields no sources.
func Discover(root string) ([]Source, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	var skipped int
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("failed to access path during scan", "path", p, "error", err)
			skipped++
			return nil
		}
		if d.IsDir() || !IsLogName(d.Name()) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if skipped > 0 {
		logger.Warn("some paths could not be scanned", "root", root, "skipped", skipped)
	}

	sort.Strings(paths)
	return FileSources(paths), nil
}

// FileSources wraps explicit paths.
func FileSources(paths []string) []Source {
	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = FileSource{Path: p}
	}
	return sources
}
