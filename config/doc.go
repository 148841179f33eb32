// Package config loads harness configuration from a YAML file, an optional
// .env file and the process environment using Viper and godotenv.
//
// # Usage
//
//	var cfg fixture.Config
//	if err := config.LoadConfig("testserver", &cfg, config.WithEnvPrefix("TESTSERVER")); err != nil {
//		return err
//	}
//
// Environment variables override file values. Underscore separated names are
// mapped onto nested keys, so TESTSERVER_HTTPS_PORT sets https.port.
package config
