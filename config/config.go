// Package config defines the JSON configuration of the preprocessing pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/sfsprep/rimage"
	"go.viam.com/sfsprep/rimage/transform"
	"go.viam.com/sfsprep/solver"
)

// Frame sources.
const (
	SourceFake   = "fake"
	SourceReplay = "replay"
)

// DefaultInputPrefix is where recordings and solver inputs are looked up.
const DefaultInputPrefix = "../data/shape_from_shading/default"

// Duration is a time.Duration that reads and writes as a string like "10s".
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(val))
	default:
		return errors.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// FakeConfig sizes the synthetic scene.
type FakeConfig struct {
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	ColorWidth  int     `json:"color_width,omitempty"`
	ColorHeight int     `json:"color_height,omitempty"`
	FrameRate   float64 `json:"frame_rate,omitempty"`
}

// Config is the complete pipeline configuration.
type Config struct {
	Source       string     `json:"source"`
	Serial       string     `json:"serial,omitempty"`
	InputPrefix  string     `json:"input_prefix,omitempty"`
	ReplayRepeat int        `json:"replay_repeat,omitempty"`
	Fake         FakeConfig `json:"fake"`

	FrameTimeout      Duration `json:"frame_timeout"`
	FrameWaitRetries  int      `json:"frame_wait_retries,omitempty"`
	MaxFrames         int      `json:"max_frames,omitempty"`
	PausePollInterval Duration `json:"pause_poll_interval"`

	rimage.FilterConfig
	MaskPolicy     string  `json:"mask_policy,omitempty"`
	NormalizeUpper float64 `json:"normalize_upper"`
	Registration   string  `json:"registration,omitempty"`

	Solve               bool   `json:"solve"`
	Solver              string `json:"solver,omitempty"`
	NonLinearIterations uint   `json:"n_iterations"`
	LinearIterations    uint   `json:"l_iterations"`

	OutputDir string `json:"output_dir,omitempty"`
	Export    bool   `json:"export"`

	// Perf is set from the command line only.
	Perf bool `json:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:              SourceFake,
		InputPrefix:         DefaultInputPrefix,
		FrameTimeout:        Duration(10 * time.Second),
		PausePollInterval:   Duration(100 * time.Millisecond),
		FilterConfig:        rimage.DefaultFilterConfig(),
		MaskPolicy:          rimage.MaskNonPositive.String(),
		NormalizeUpper:      1,
		Registration:        "resize",
		Solver:              "identity",
		NonLinearIterations: solver.DefaultNonLinearIterations,
		LinearIterations:    solver.DefaultLinearIterations,
		OutputDir:           ".",
	}
}

// Read loads the file at path over the defaults and validates the result.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config file %s", path)
	}
	if _, err := cfg.Validate("config"); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return cfg, nil
}

func newValidationError(path, field string, err error) error {
	return errors.Wrapf(err, "error validating %q", fmt.Sprintf("%s.%s", path, field))
}

// Validate checks every field and returns warnings about settings that are
// legal but unusual.
func (c *Config) Validate(path string) ([]string, error) {
	var warnings []string
	switch c.Source {
	case SourceFake:
		if c.Fake.Width < 0 || c.Fake.Height < 0 || c.Fake.ColorWidth < 0 || c.Fake.ColorHeight < 0 {
			return nil, newValidationError(path, "fake", errors.New("dimensions must be non-negative"))
		}
		if c.Fake.FrameRate < 0 {
			return nil, newValidationError(path, "fake.frame_rate", errors.New("must be non-negative"))
		}
	case SourceReplay:
		if c.InputPrefix == "" {
			return nil, newValidationError(path, "input_prefix", errors.New("required for replay source"))
		}
		if c.ReplayRepeat < 0 {
			return nil, newValidationError(path, "replay_repeat", errors.New("must be non-negative"))
		}
	default:
		return nil, newValidationError(path, "source", errors.Errorf("unknown source %q", c.Source))
	}
	if c.FrameTimeout <= 0 {
		return nil, newValidationError(path, "frame_timeout", errors.New("must be positive"))
	}
	if c.FrameWaitRetries < 0 {
		return nil, newValidationError(path, "frame_wait_retries", errors.New("must be non-negative"))
	}
	if c.PausePollInterval <= 0 {
		return nil, newValidationError(path, "pause_poll_interval", errors.New("must be positive"))
	}
	if err := c.FilterConfig.Validate(); err != nil {
		field := "kernel_size"
		if c.ErosionMargin < 0 {
			field = "erosion_margin"
		}
		return nil, newValidationError(path, field, err)
	}
	policy, err := rimage.ParseMaskPolicy(c.MaskPolicy)
	if err != nil {
		return nil, newValidationError(path, "mask_policy", err)
	}
	if policy == rimage.MaskZeroOnly {
		warnings = append(warnings, "mask_policy zero_only keeps negative and non-finite depth as valid")
	}
	if c.NormalizeUpper <= 0 {
		return nil, newValidationError(path, "normalize_upper", errors.New("must be positive"))
	}
	if _, err := transform.ParseRegistration(c.Registration); err != nil {
		return nil, newValidationError(path, "registration", err)
	}
	if c.Registration == "none" {
		warnings = append(warnings, "registration none skips frames whose color and depth sizes differ")
	}
	if c.Solve {
		if _, err := solver.New(c.Solver); err != nil {
			return nil, newValidationError(path, "solver", err)
		}
	}
	return warnings, nil
}

// MaxFramesReached reports whether count frames exhaust the frame limit. A
// non-positive limit never does.
func (c *Config) MaxFramesReached(count int) bool {
	return c.MaxFrames > 0 && count >= c.MaxFrames
}

// SolverParameters returns the configured iteration counts.
func (c *Config) SolverParameters() solver.NamedParameters {
	params := solver.DefaultParameters()
	params.Set(solver.ParamNonLinearIterations, c.NonLinearIterations)
	params.Set(solver.ParamLinearIterations, c.LinearIterations)
	return params
}
