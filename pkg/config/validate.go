package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/blockmesh/blockmesh/pkg/policy"
)

var validate = validator.New()

// Validate checks struct-level constraints via go-playground/validator and
// a handful of cross-field rules the struct tags cannot express, such as
// checking Policy against the live policy registry.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	known := policy.Names()
	for _, name := range known {
		if name == cfg.Policy {
			return validatePortConsistency(cfg)
		}
	}
	return fmt.Errorf("unknown policy %q (known: %v)", cfg.Policy, known)
}

func validatePortConsistency(cfg *Config) error {
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics.port must be set when metrics.enabled is true")
	}
	return nil
}
