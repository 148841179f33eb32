package server

import (
	"fmt"
	"time"

	"github.com/kbukum/testserver/security"
	"github.com/kbukum/testserver/util"
)

// Config holds engine configuration.
type Config struct {
	Host string `yaml:"host" mapstructure:"host" validate:"required"`
	// Port 0 binds an ephemeral port on the first Startup.
	Port            int                `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration      `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration      `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration      `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration      `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxBodySize     string             `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "10MB"
	H2C             bool               `yaml:"h2c" mapstructure:"h2c"`
	TLS             security.ServerTLS `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"idle_timeout":     c.IdleTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("server.%s must be non-negative (got: %s)", name, d)
		}
	}
	if _, err := util.SizeBytes(c.MaxBodySize); c.MaxBodySize != "" && err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	return c.TLS.Validate()
}

// IsTLS reports whether the engine serves TLS.
func (c *Config) IsTLS() bool {
	return c.TLS.IsEnabled()
}
