package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/config"
	"github.com/ConfabulousDev/aist/internal/interval"
	"github.com/ConfabulousDev/aist/internal/logger"
	"github.com/ConfabulousDev/aist/internal/pipeline"
	"github.com/ConfabulousDev/aist/internal/storage"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("workers") {
		if workers < 1 {
			return nil, fmt.Errorf("--workers must be at least 1")
		}
		cfg.Pipeline.Workers = workers
	}
	return cfg, nil
}

// resolveSources picks where sessions come from: explicit paths, the
// archive, or the projects directory.
func resolveSources(ctx context.Context, cfg *config.Config, paths []string) ([]storage.Source, error) {
	if len(paths) > 0 {
		var sources []storage.Source
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", p, err)
			}
			if !info.IsDir() {
				sources = append(sources, storage.FileSources([]string{p})...)
				continue
			}
			found, err := storage.Discover(p)
			if err != nil {
				return nil, err
			}
			sources = append(sources, found...)
		}
		return sources, nil
	}

	if s3Prefix != "" {
		if !cfg.Storage.HasArchive() {
			return nil, fmt.Errorf("--s3-prefix needs [storage] endpoint and bucket in %s", configPath)
		}
		archive, err := storage.NewS3Archive(ctx, cfg.Storage.S3())
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		return archive.ListSources(ctx, s3Prefix)
	}

	return storage.Discover(cfg.Paths.ProjectsDir)
}

// analyzeSessions loads config and sources and runs the pipeline.
func analyzeSessions(cmd *cobra.Command, paths []string) (*pipeline.Result, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return runPipeline(cmd.Context(), cfg, paths)
}

func runPipeline(ctx context.Context, cfg *config.Config, paths []string) (*pipeline.Result, error) {
	sources, err := resolveSources(ctx, cfg, paths)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		logger.Warn("no session logs found", "projects_dir", cfg.Paths.ProjectsDir)
	}

	res, err := pipeline.Run(ctx, sources, pipeline.Options{
		Workers: cfg.Pipeline.Workers,
		Detect:  cfg.Detect.ToBottleneck(),
		Timeline: interval.Options{
			SyntheticDuration: cfg.Timeline.SyntheticDuration.Duration,
		},
	})
	if err != nil {
		return nil, err
	}
	if project != "" {
		res.Filter(func(a *pipeline.Analysis) bool {
			return matchesProject(a.Metrics.Project, a.Metrics.ProjectPath, project)
		})
	}
	return res, nil
}

// matchesProject accepts a project short name, or a path that is the
// session's working directory or one of its parents.
func matchesProject(name, path, want string) bool {
	if name == want {
		return true
	}
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(config.ExpandPath(want))
	if err != nil {
		return false
	}
	return path == abs || strings.HasPrefix(path, abs+string(filepath.Separator))
}
