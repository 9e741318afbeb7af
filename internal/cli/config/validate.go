package config

import (
	"fmt"
	"slices"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if !slices.Contains([]string{OutputText, OutputJSON}, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.OutputFormat, OutputText, OutputJSON)
	}
	return nil
}
