package config

import "fmt"

// Environments accepted by BaseConfig.Validate.
var Environments = []string{"test", "development", "ci"}

// BaseConfig contains the identity fields every harness configuration carries.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults fills empty fields. A development environment turns Debug on.
func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "test"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("base.name is required")
	}
	for _, v := range Environments {
		if c.Environment == v {
			return nil
		}
	}
	return fmt.Errorf("base.environment must be one of %v (got: %s)", Environments, c.Environment)
}
