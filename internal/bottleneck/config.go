package bottleneck

import (
	"errors"
	"time"
)

// Config holds detector thresholds.
type Config struct {
	// ErrorLoopMinFailures is the shortest run of failures reported.
	ErrorLoopMinFailures int
	// SpiralMinReads: a spiral needs strictly more reads than this.
	SpiralMinReads int
	// SpiralWindow is the minimum wall-clock span of a spiral.
	SpiralWindow time.Duration
	// EditThrashMinEdits is the edit count at which a file is reported.
	EditThrashMinEdits int
	// LongGapThreshold: gaps strictly longer than this are reported.
	LongGapThreshold time.Duration
	// SubagentMinEvents: sub-agents with fewer events are reported.
	SubagentMinEvents int
	// SubagentMinOutputRatio is the minimum assistant output relative to
	// the spawning prompt size.
	SubagentMinOutputRatio float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		ErrorLoopMinFailures:   3,
		SpiralMinReads:         10,
		SpiralWindow:           10 * time.Minute,
		EditThrashMinEdits:     5,
		LongGapThreshold:       5 * time.Minute,
		SubagentMinEvents:      3,
		SubagentMinOutputRatio: 0.5,
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid detector config")

// Validate rejects thresholds that would make a detector meaningless.
func (c Config) Validate() error {
	switch {
	case c.ErrorLoopMinFailures < 1:
		return errors.Join(ErrInvalidConfig, errors.New("error loop minimum must be at least 1"))
	case c.SpiralMinReads < 0:
		return errors.Join(ErrInvalidConfig, errors.New("spiral read threshold must not be negative"))
	case c.SpiralWindow <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("spiral window must be positive"))
	case c.EditThrashMinEdits < 1:
		return errors.Join(ErrInvalidConfig, errors.New("edit thrashing minimum must be at least 1"))
	case c.LongGapThreshold <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("long gap threshold must be positive"))
	case c.SubagentMinEvents < 0 || c.SubagentMinOutputRatio < 0:
		return errors.Join(ErrInvalidConfig, errors.New("subagent thresholds must not be negative"))
	}
	return nil
}
