// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Prefix namespaces every environment variable read by shiftproof processes.
const Prefix = "SHIFTPROOF_"

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Required returns an error naming the first blank value in name/value pairs.
func Required(pairs ...string) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("required: odd number of name/value arguments")
	}
	for i := 0; i < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s is required", pairs[i])
		}
	}
	return nil
}
