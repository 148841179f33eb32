// Package validation checks harness configuration.
//
// Struct tags cover per-field bounds (ports, timeouts) through
// go-playground/validator; the programmatic Validator collects cross-field
// rules such as "TLS cert and key come together".
//
//	type Options struct {
//	    PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
//	}
//	err := validation.Validate(opts)
package validation
