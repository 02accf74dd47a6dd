package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/aist/internal/config"
	"github.com/ConfabulousDev/aist/internal/logger"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool
	workers    int
	s3Prefix   string
	project    string
)

var rootCmd = &cobra.Command{
	Use:   "aist",
	Short: "Find where the time goes in AI coding sessions",
	Long: `aist reads Claude Code session transcripts, rebuilds each conversation with
its sub-agents, and reports bottlenecks: error loops, exploration spirals,
edit thrashing, long gaps and unproductive sub-agents.

Sessions are read from the projects directory by default. Pass files or
directories as arguments to analyze those instead, or --s3-prefix to read
from the configured archive.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "parallel workers (default from config)")
	rootCmd.PersistentFlags().StringVar(&s3Prefix, "s3-prefix", "", "read sessions from the S3 archive under this prefix")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "only sessions of this project (name or path)")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	shutdown := setupTelemetry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupTelemetry configures exporters from OTEL_* env vars. Without an
// endpoint tracing stays a no-op.
func setupTelemetry() func() {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func() {}
	}
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		return func() {}
	}
	return otelShutdown
}
