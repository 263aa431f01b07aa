package propagate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "15m" or "2h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the YAML run configuration for a Propagator. Zero fields keep
// their defaults; see the corresponding options for semantics.
//
// Example:
//
//	walltime: 15m
//	max_steps: 5000000
//	max_concatenations: 4
type Config struct {
	// Walltime is the wall-time bound of one engine segment.
	Walltime Duration `yaml:"walltime"`

	// MaxSteps caps the engine's total step count. See WithMaxSteps.
	MaxSteps int `yaml:"max_steps"`

	// MaxFrames caps the output frame count. See WithMaxFrames.
	MaxFrames int `yaml:"max_frames"`

	// MaxConcatenations sizes the process-wide stitch limiter.
	MaxConcatenations int `yaml:"max_concatenations"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks field ranges without applying defaults.
func (c *Config) Validate() error {
	if c.Walltime < 0 {
		return fmt.Errorf("walltime must be >= 0, got %s", time.Duration(c.Walltime))
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be >= 0, got %d", c.MaxSteps)
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be >= 0, got %d", c.MaxFrames)
	}
	if c.MaxConcatenations < 0 {
		return fmt.Errorf("max_concatenations must be >= 0, got %d", c.MaxConcatenations)
	}
	return nil
}

// Options converts the configuration into the equivalent option list.
// Zero-valued fields contribute nothing, so the result can be combined
// freely with explicit options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.MaxSteps > 0 {
		opts = append(opts, WithMaxSteps(c.MaxSteps))
	}
	if c.MaxFrames > 0 {
		opts = append(opts, WithMaxFrames(c.MaxFrames))
	}
	if c.MaxConcatenations > 0 {
		opts = append(opts, WithLimiter(NewLimiter(int64(c.MaxConcatenations))))
	}
	return opts
}
