package lifecycle

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/validation"
)

// Default timings.
const (
	DefaultStartTimeout    = 10 * time.Second
	DefaultRestartTimeout  = 10 * time.Second
	DefaultPollInterval    = 5 * time.Millisecond
	DefaultWatchInterval   = 100 * time.Millisecond
	DefaultShutdownTimeout = 5 * time.Second
)

// Config holds the controller timings.
type Config struct {
	// StartTimeout bounds how long Start waits for the first bind.
	StartTimeout time.Duration `yaml:"start_timeout" mapstructure:"start_timeout" validate:"gte=0"`
	// RestartTimeout bounds RequestRestart when its context has no deadline.
	RestartTimeout time.Duration `yaml:"restart_timeout" mapstructure:"restart_timeout" validate:"gte=0"`
	// PollInterval is the sleep between readiness checks of waiting callers.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" validate:"gte=0"`
	// WatchInterval is how often the watcher checks the exit flag.
	WatchInterval time.Duration `yaml:"watch_interval" mapstructure:"watch_interval" validate:"gte=0"`
	// ShutdownTimeout bounds each engine shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.RestartTimeout == 0 {
		c.RestartTimeout = DefaultRestartTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WatchInterval == 0 {
		c.WatchInterval = DefaultWatchInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the controller timings. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		cfg.ApplyDefaults()
		c.config = cfg
	}
}

// WithLogger sets the logger for lifecycle transitions.
func WithLogger(log *logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMeter records restart metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(c *Controller) { c.meter = meter }
}

// WithName sets the component name. Defaults to "server".
func WithName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.name = name
		}
	}
}
