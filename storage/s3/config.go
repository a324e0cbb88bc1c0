package s3

import (
	"fmt"

	"github.com/kbukum/streamkit/errors"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config configures the S3 backend.
type Config struct {
	Bucket string `mapstructure:"bucket" json:"bucket"`
	Region string `mapstructure:"region" json:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO). Setting it
	// implies path-style addressing.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`

	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style"`

	// ContentType is sent with every upload when set.
	ContentType string `mapstructure:"content_type" json:"content_type"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.InvalidInput("bucket", "required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.InvalidInput("region", "required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("s3: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// merge fills fields left empty in c from the shared storage settings.
func (c *Config) merge(bucket, region, endpoint, accessKey, secretKey string) {
	if c.Bucket == "" {
		c.Bucket = bucket
	}
	if c.Region == "" {
		c.Region = region
	}
	if c.Endpoint == "" {
		c.Endpoint = endpoint
	}
	if c.AccessKey == "" && c.SecretKey == "" {
		c.AccessKey, c.SecretKey = accessKey, secretKey
	}
}
