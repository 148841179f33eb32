package fixture

import (
	"fmt"

	"github.com/kbukum/testserver/config"
	"github.com/kbukum/testserver/lifecycle"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
	"github.com/kbukum/testserver/server"
	"github.com/kbukum/testserver/validation"
	"github.com/kbukum/testserver/version"
)

// ServiceName names the harness in logs, telemetry and config lookup.
const ServiceName = "testserver"

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TESTSERVER"

// Config is the harness configuration.
//
//	name: testserver
//	http:
//	  port: 0
//	https:
//	  port: 0
//	lifecycle:
//	  restart_timeout: 2s
type Config struct {
	config.BaseConfig `yaml:",inline" mapstructure:",squash"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	HTTP          server.Config        `yaml:"http" mapstructure:"http"`
	HTTPS         server.Config        `yaml:"https" mapstructure:"https"`
	Lifecycle     lifecycle.Config     `yaml:"lifecycle" mapstructure:"lifecycle"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// DefaultConfig returns a configuration with ephemeral ports for both
// servers, quiet logging and defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{
		Logging: logger.Config{Level: "warn"},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads the configuration from config.yml, .env and TESTSERVER_*
// variables, then applies defaults and validates it.
func Load(opts ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	opts = append([]config.LoaderOption{config.WithEnvPrefix(EnvPrefix)}, opts...)
	if err := config.LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.BaseConfig.ApplyDefaults()
	c.Logging.ApplyDefaults()
	if c.Debug {
		c.Logging.Level = "debug"
	}
	c.HTTP.ApplyDefaults()
	c.HTTPS.ApplyDefaults()
	c.Lifecycle.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section and reports all problems at once as an
// INVALID_INPUT error. Equal non-zero ports on one host are rejected since
// the two servers could never both bind.
func (c *Config) Validate() error {
	v := validation.New()
	v.Merge(c.BaseConfig.Validate())
	v.Merge(c.Logging.Validate())
	if err := c.HTTP.Validate(); err != nil {
		v.Merge(fmt.Errorf("http: %w", err))
	}
	if err := c.HTTPS.Validate(); err != nil {
		v.Merge(fmt.Errorf("https: %w", err))
	}
	v.Merge(c.Observability.Validate())
	samePort := c.HTTP.Port != 0 && c.HTTP.Port == c.HTTPS.Port && c.HTTP.Host == c.HTTPS.Host
	v.Check(!samePort, "https.port", fmt.Sprintf("must differ from http.port (both %d)", c.HTTP.Port))
	v.Merge(validation.Validate(c))
	return v.Validate()
}

// Logger builds the logger described by the logging section.
func (c *Config) Logger() *logger.Logger {
	return logger.New(&c.Logging, c.Name)
}
