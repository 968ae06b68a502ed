// Package config models the C8 Configuration component: a small,
// documented-defaults options struct in the style of the teacher's
// microbatch.BatcherConfig and eventloop's options.go - a plain struct
// passed by value (the zero Config plus WithDefaults means "all
// defaults"), rather than a functional-
// options or flag-framework layer, matching the teacher's minimal-
// dependency posture (no CLI/config framework appears in its own
// require block).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every run parameter C7's Simulation needs beyond the parsed
// Model itself.
type Config struct {
	// IntersectionsPath is the path to the intersections input file.
	// Required; there is no default.
	IntersectionsPath string

	// TrainsPath is the path to the trains input file. Required; there is
	// no default.
	TrainsPath string

	// LogPath is where log output is appended. Defaults to "" (stdout), if
	// empty.
	LogPath string

	// LogLevel defaults to logrus.InfoLevel unless it was set through
	// SetLogLevel (logrus.Level(0) is PanicLevel, so the Go zero value cannot
	// mean "unset"; WithDefaults checks the logLevelSet flag instead).
	LogLevel logrus.Level
	logLevelSet bool

	// DetectorInterval is how often the deadlock detector polls. Defaults
	// to 2ms, if zero or negative.
	DetectorInterval time.Duration

	// TraversalTicks is the fixed number of simulated-clock ticks a train
	// reports for each intersection traversal. Defaults to 1, if zero.
	TraversalTicks uint64
}

// SetLogLevel sets LogLevel and marks it as explicitly configured, so
// WithDefaults does not clobber an intentional logrus.PanicLevel (the zero
// value) with the Info default.
func (c *Config) SetLogLevel(level logrus.Level) {
	c.LogLevel = level
	c.logLevelSet = true
}

// WithDefaults returns a copy of c with documented defaults applied.
func (c Config) WithDefaults() Config {
	if !c.logLevelSet {
		c.LogLevel = logrus.InfoLevel
	}
	if c.DetectorInterval <= 0 {
		c.DetectorInterval = 2 * time.Millisecond
	}
	if c.TraversalTicks == 0 {
		c.TraversalTicks = 1
	}
	return c
}

// Validate checks the fields that must be set for a run to even attempt to
// start, returning a descriptive error rather than panicking - unlike
// NewBatcher's panic on an impossible flush/size combination, a missing
// input path is routine operator error, not a programming error, so it is
// reported through the ordinary error path instead, surfaced by
// cmd/railctl as a non-zero exit code.
func (c Config) Validate() error {
	if c.IntersectionsPath == "" {
		return fmt.Errorf("config: intersections path is required")
	}
	if c.TrainsPath == "" {
		return fmt.Errorf("config: trains path is required")
	}
	return nil
}

// FromEnv layers environment-variable overrides onto c, following the
// prefix RAILSIM_*. Only variables that are actually set are applied; c's
// existing values (e.g. from flags) are otherwise left untouched.
func FromEnv(c Config) (Config, error) {
	if v, ok := os.LookupEnv("RAILSIM_LOG_LEVEL"); ok {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return c, fmt.Errorf("config: RAILSIM_LOG_LEVEL: %w", err)
		}
		c.SetLogLevel(level)
	}
	if v, ok := os.LookupEnv("RAILSIM_LOG_PATH"); ok {
		c.LogPath = v
	}
	if v, ok := os.LookupEnv("RAILSIM_DETECTOR_INTERVAL_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("config: RAILSIM_DETECTOR_INTERVAL_MS: %w", err)
		}
		c.DetectorInterval = time.Duration(ms) * time.Millisecond
	}
	return c, nil
}
