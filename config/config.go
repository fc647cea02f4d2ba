// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/bracetopia/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Grid       GridConfig       `yaml:"grid"`
	Preference PreferenceConfig `yaml:"preference"`
	Run        RunConfig        `yaml:"run"`
	Display    DisplayConfig    `yaml:"display"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GridConfig holds grid size and composition.
type GridConfig struct {
	Dimension      int    `yaml:"dimension"`
	VacancyPercent int    `yaml:"vacancy_percent"`
	EndlinePercent int    `yaml:"endline_percent"` // share of agents, not of cells
	Shuffle        string `yaml:"shuffle"`
}

// PreferenceConfig holds the agents' tolerance.
type PreferenceConfig struct {
	StrengthPercent int `yaml:"strength_percent"`
}

// RunConfig holds run length and pacing.
type RunConfig struct {
	Cycles *int          `yaml:"cycles"` // last cycle index; nil = continuous
	Delay  time.Duration `yaml:"delay"`
	Seed   int64         `yaml:"seed"`
}

// DisplayConfig holds window settings for continuous mode.
type DisplayConfig struct {
	Window    bool `yaml:"window"`
	CellSize  int  `yaml:"cell_size"`
	TargetFPS int  `yaml:"target_fps"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	OutputDir        string  `yaml:"output_dir"`
	SnapshotDir      string  `yaml:"snapshot_dir"`
	Record           string  `yaml:"record"`
	LogStats         bool    `yaml:"log_stats"`
	PerfWindow       int     `yaml:"perf_window"`
	BookmarkHistory  int     `yaml:"bookmark_history"`
	PlateauTolerance float64 `yaml:"plateau_tolerance"`
}

// LoggingConfig holds the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SimulationConfig is the validated, read-only view of the configuration
// that the simulation core runs from.
type SimulationConfig struct {
	Dimension       int
	VacancyPercent  int
	EndlinePercent  int
	StrengthPercent int

	// CycleLimit is the number of cycles to run; nil runs until interrupted.
	CycleLimit *int
	FrameDelay time.Duration
	Shuffle    systems.ShuffleMode
}

// Continuous reports whether the run has no cycle limit.
func (s SimulationConfig) Continuous() bool {
	return s.CycleLimit == nil
}

// Limit returns the cycle limit and whether one is set.
func (s SimulationConfig) Limit() (int, bool) {
	if s.CycleLimit == nil {
		return 0, false
	}
	return *s.CycleLimit, true
}

// Cycles returns a cycle limit of n.
func Cycles(n int) *int {
	return &n
}

// ValidationError reports an out-of-range setting.
type ValidationError struct {
	Field string
	Value int
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func invalid(field string, value int, format string) *ValidationError {
	return &ValidationError{Field: field, Value: value, msg: fmt.Sprintf(format, value)}
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks every setting the simulation depends on.
func (c *Config) Validate() error {
	switch d := c.Grid.Dimension; {
	case d <= 0:
		return invalid("dimension", d, "dimension (%d) must be a non-negative integer.")
	case d < 5 || d > 39:
		return invalid("dimension", d, "dimension (%d) must be a value in [5...39]")
	}

	switch s := c.Preference.StrengthPercent; {
	case s < 0:
		return invalid("strength", s, "preference strength (%d) must be a non-negative integer.")
	case s == 0 || s >= 100:
		return invalid("strength", s, "preference strength (%d) must be a value in [1...99]")
	}

	switch v := c.Grid.VacancyPercent; {
	case v < 0:
		return invalid("vacancy", v, "Vacancy (%d) must be a non-negative integer.")
	case v == 0 || v >= 100:
		return invalid("vacancy", v, "vacancy (%d) must be a value in [1...99]")
	}

	switch e := c.Grid.EndlinePercent; {
	case e < 0:
		return invalid("endline", e, "Endline proportion (%d) must be a non-negative integer.")
	case e == 0 || e >= 100:
		return invalid("endline", e, "Endline proportion (%d) must be a value in [1...99]")
	}

	if c.Run.Cycles != nil && *c.Run.Cycles < 0 {
		return invalid("cycles", *c.Run.Cycles, "Cycles (%d) must be a non-negative integer.")
	}

	if c.Run.Delay <= 0 {
		return &ValidationError{Field: "delay", msg: fmt.Sprintf("delay (%s) must be positive", c.Run.Delay)}
	}

	switch systems.ShuffleMode(c.Grid.Shuffle) {
	case systems.ShuffleSwap, systems.ShuffleUniform:
	default:
		return &ValidationError{Field: "shuffle", msg: fmt.Sprintf("shuffle (%q) must be one of swap, uniform", c.Grid.Shuffle)}
	}

	if _, err := c.LogLevel(); err != nil {
		return &ValidationError{Field: "level", msg: err.Error()}
	}

	return nil
}

// Simulation derives the core's view of the configuration. Call Validate first.
func (c *Config) Simulation() SimulationConfig {
	var limit *int
	if c.Run.Cycles != nil {
		// Cycles names the last cycle index, so 0 still prints one frame.
		limit = Cycles(*c.Run.Cycles + 1)
	}
	return SimulationConfig{
		Dimension:       c.Grid.Dimension,
		VacancyPercent:  c.Grid.VacancyPercent,
		EndlinePercent:  c.Grid.EndlinePercent,
		StrengthPercent: c.Preference.StrengthPercent,
		CycleLimit:      limit,
		FrameDelay:      c.Run.Delay,
		Shuffle:         systems.ShuffleMode(c.Grid.Shuffle),
	}
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level))); err != nil {
		return 0, fmt.Errorf("log level (%q) must be one of debug, info, warn, error", c.Logging.Level)
	}
	return level, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.MarshalYAMLBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// MarshalYAMLBytes encodes the configuration.
func (c *Config) MarshalYAMLBytes() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
