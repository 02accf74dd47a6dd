// Package config loads analysis settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ConfabulousDev/aist/internal/bottleneck"
	"github.com/ConfabulousDev/aist/internal/interval"
	"github.com/ConfabulousDev/aist/internal/storage"
)

// Config holds all application configuration
type Config struct {
	Detect   DetectConfig   `toml:"detect"`
	Timeline TimelineConfig `toml:"timeline"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Storage  StorageConfig  `toml:"storage"`
	GitHub   GitHubConfig   `toml:"github"`
	Paths    PathsConfig    `toml:"paths"`
}

// DetectConfig holds bottleneck thresholds. Durations use Go syntax ("10m").
type DetectConfig struct {
	ErrorLoopMinFailures   int      `toml:"error_loop_min_failures"`
	SpiralMinReads         int      `toml:"spiral_min_reads"`
	SpiralWindow           Duration `toml:"spiral_window"`
	EditThrashMinEdits     int      `toml:"edit_thrash_min_edits"`
	LongGapThreshold       Duration `toml:"long_gap_threshold"`
	SubagentMinEvents      int      `toml:"subagent_min_events"`
	SubagentMinOutputRatio float64  `toml:"subagent_min_output_ratio"`
}

// TimelineConfig holds interval builder settings
type TimelineConfig struct {
	SyntheticDuration Duration `toml:"synthetic_duration"`
}

// PipelineConfig holds worker settings
type PipelineConfig struct {
	Workers int `toml:"workers"`
}

// StorageConfig holds the optional S3/MinIO archive
type StorageConfig struct {
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Bucket          string `toml:"bucket"`
	UseSSL          bool   `toml:"use_ssl"`
}

// GitHubConfig holds pull request sync settings
type GitHubConfig struct {
	Token             string  `toml:"token"`
	APIURL            string  `toml:"api_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// PathsConfig holds local directories
type PathsConfig struct {
	ProjectsDir string `toml:"projects_dir"`
	CacheDir    string `toml:"cache_dir"`
}

// Duration is a time.Duration that reads from TOML strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with the stock thresholds
func Default() *Config {
	home, _ := os.UserHomeDir()
	det := bottleneck.DefaultConfig()
	return &Config{
		Detect: DetectConfig{
			ErrorLoopMinFailures:   det.ErrorLoopMinFailures,
			SpiralMinReads:         det.SpiralMinReads,
			SpiralWindow:           Duration{det.SpiralWindow},
			EditThrashMinEdits:     det.EditThrashMinEdits,
			LongGapThreshold:       Duration{det.LongGapThreshold},
			SubagentMinEvents:      det.SubagentMinEvents,
			SubagentMinOutputRatio: det.SubagentMinOutputRatio,
		},
		Timeline: TimelineConfig{
			SyntheticDuration: Duration{interval.DefaultSyntheticDuration},
		},
		Pipeline: PipelineConfig{
			Workers: 4,
		},
		GitHub: GitHubConfig{
			APIURL:            "https://api.github.com",
			RequestsPerSecond: 5,
		},
		Paths: PathsConfig{
			ProjectsDir: filepath.Join(home, ".claude", "projects"),
			CacheDir:    filepath.Join(home, ".config", "aist", "repos"),
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Paths.ProjectsDir = ExpandPath(cfg.Paths.ProjectsDir)
	cfg.Paths.CacheDir = ExpandPath(cfg.Paths.CacheDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables when set.
func (c *Config) applyEnv() error {
	if v := os.Getenv("AIST_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AIST_WORKERS: %w", err)
		}
		c.Pipeline.Workers = n
	}
	if v := os.Getenv("AIST_GAP_THRESHOLD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AIST_GAP_THRESHOLD: %w", err)
		}
		c.Detect.LongGapThreshold = Duration{d}
	}
	if v := os.Getenv("AIST_PROJECTS_DIR"); v != "" {
		c.Paths.ProjectsDir = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Storage.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("BUCKET_NAME"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		c.Storage.UseSSL = v == "true"
	}
	return nil
}

// Validate checks thresholds and worker count.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}
	if c.Timeline.SyntheticDuration.Duration <= 0 {
		return errors.New("timeline.synthetic_duration must be positive")
	}
	return c.Detect.ToBottleneck().Validate()
}

// ToBottleneck converts the detect section into detector thresholds.
func (d DetectConfig) ToBottleneck() bottleneck.Config {
	return bottleneck.Config{
		ErrorLoopMinFailures:   d.ErrorLoopMinFailures,
		SpiralMinReads:         d.SpiralMinReads,
		SpiralWindow:           d.SpiralWindow.Duration,
		EditThrashMinEdits:     d.EditThrashMinEdits,
		LongGapThreshold:       d.LongGapThreshold.Duration,
		SubagentMinEvents:      d.SubagentMinEvents,
		SubagentMinOutputRatio: d.SubagentMinOutputRatio,
	}
}

// HasArchive reports whether an S3 archive is configured.
func (s StorageConfig) HasArchive() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// S3 converts the storage section into an archive config.
func (s StorageConfig) S3() storage.S3Config {
	return storage.S3Config{
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		BucketName:      s.Bucket,
		UseSSL:          s.UseSSL,
	}
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "aist", "config.toml")
}
