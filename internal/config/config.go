// Package config defines the run configuration of section-assign and how it
// is layered from defaults, a YAML file and the environment.
package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/section-assign/section-assign/assign"
	"github.com/section-assign/section-assign/assign/roster"
)

// Config contains the settings of one assignment run.
type Config struct {
	// LogLevel controls verbosity: trace, debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Seed drives every random choice of the run (sub-slot tie-break, shuffle order).
	Seed int64 `koanf:"seed"`

	// Quota is the number of groups each entity must receive unless its record overrides it.
	Quota int `koanf:"quota"`

	// DefaultRank is the rank of groups an entity did not list. 0 resolves it
	// over the cohort: the number of groups or one past the worst stated position.
	DefaultRank int `koanf:"default_rank"`

	// CostTransform maps a rank to its cost: linear, quadratic or cubic.
	CostTransform string `koanf:"cost_transform"`

	Prioritize bool `koanf:"prioritize"`
	Analyze    bool `koanf:"analyze"`
	Strict     bool `koanf:"strict"`

	// SolveTimeout bounds the solver. 0 means no limit.
	SolveTimeout time.Duration `koanf:"solve_timeout"`

	// Order is the cohort ordering: input, last-name or shuffle.
	Order string `koanf:"order"`

	// EmailDomain completes contacts such as "jdoe@". Empty leaves contacts untouched.
	EmailDomain string `koanf:"email_domain"`

	// TokenMatch selects how preference cells are matched to group labels.
	TokenMatch string `koanf:"token_match"`

	Roster roster.Layout `koanf:"roster"`

	TopologyFile string `koanf:"topology_file"`
	MetricsFile  string `koanf:"metrics_file"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Seed:          42,
		Quota:         1,
		CostTransform: assign.TransformLinear,
		Order:         assign.OrderInput,
		TokenMatch:    assign.MatchLabel,
		Roster:        roster.DefaultLayout(),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Quota <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("quota must be positive, got %d", c.Quota))
	}
	if c.DefaultRank < 0 {
		errs = multierr.Append(errs, fmt.Errorf("default_rank must be non-negative, got %d", c.DefaultRank))
	}
	if !assign.ValidCostTransforms[c.CostTransform] {
		errs = multierr.Append(errs, fmt.Errorf("unknown cost_transform %q", c.CostTransform))
	}
	if !assign.ValidOrders[c.Order] {
		errs = multierr.Append(errs, fmt.Errorf("unknown order %q", c.Order))
	}
	if !assign.ValidTokenMatches[c.TokenMatch] {
		errs = multierr.Append(errs, fmt.Errorf("unknown token_match %q", c.TokenMatch))
	}
	if c.SolveTimeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("solve_timeout must be non-negative, got %v", c.SolveTimeout))
	}
	if err := c.Roster.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("roster: %w", err))
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// NormalizeOptions returns the normalizer settings of the config.
func (c *Config) NormalizeOptions() assign.NormalizeOptions {
	return assign.NormalizeOptions{
		DefaultQuota: c.Quota,
		DefaultRank:  c.DefaultRank,
		Prioritize:   c.Prioritize,
		Strict:       c.Strict,
		EmailDomain:  c.EmailDomain,
		TokenMatch:   c.TokenMatch,
		Order:        c.Order,
	}
}

// PipelineOptions returns the options for assign.Run, tagged with runID.
func (c *Config) PipelineOptions(runID string) assign.Options {
	return assign.Options{
		RunID:        runID,
		Seed:         c.Seed,
		Normalize:    c.NormalizeOptions(),
		Transform:    c.CostTransform,
		SolveTimeout: c.SolveTimeout,
		Analyze:      c.Analyze,
	}
}
