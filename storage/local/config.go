package local

import "github.com/kbukum/streamkit/errors"

// Config configures the local backend.
type Config struct {
	// BasePath is the directory objects are stored under.
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/tmp/streamkit"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return errors.InvalidInput("base_path", "required")
	}
	return nil
}
