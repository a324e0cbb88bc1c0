package config

import (
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/storage"
	"github.com/kbukum/streamkit/storage/s3"
	"github.com/kbukum/streamkit/stream"
	"github.com/kbukum/streamkit/validation"
)

// Config is the full streamkit configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Stream        StreamConfig         `yaml:"stream" mapstructure:"stream"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	S3            s3.Config            `yaml:"s3" mapstructure:"s3"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills in zero-valued fields of every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "streamkit"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Storage.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = observability.DefaultConfig(c.Name).Endpoint
	}
	if c.Observability.MetricInterval <= 0 {
		c.Observability.MetricInterval = observability.DefaultConfig(c.Name).MetricInterval
	}
}

// Validate checks struct tags first, then the rules each section enforces
// itself.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	sc := c.storageConfig()
	return sc.Validate()
}

// storageConfig fills the shared S3 fields from the s3 section, which takes
// precedence when both are set.
func (c *Config) storageConfig() storage.Config {
	sc := c.Storage
	if sc.Provider != storage.ProviderS3 {
		return sc
	}
	if c.S3.Bucket != "" {
		sc.Bucket = c.S3.Bucket
	}
	if c.S3.Region != "" {
		sc.Region = c.S3.Region
	}
	if c.S3.Endpoint != "" {
		sc.Endpoint = c.S3.Endpoint
	}
	return sc
}

// NewStorage builds the configured object store. The backend package must
// be linked in, see storage.New.
func (c *Config) NewStorage(log *logger.Logger) (storage.Storage, error) {
	var providerCfg any
	if c.Storage.Provider == storage.ProviderS3 {
		s3cfg := c.S3
		providerCfg = &s3cfg
	}
	return storage.New(c.storageConfig(), providerCfg, log)
}

// NewLogger builds a logger from the logging section.
func (c *Config) NewLogger() *logger.Logger {
	cfg := c.Logging
	cfg.ApplyDefaults()
	return logger.New(&cfg, c.Name)
}

// Apply installs the logging section as the process-wide logger and
// registers the "stream" component logger that pipelines use by default.
// It returns the stream options of the stream section.
func (c *Config) Apply() []stream.Option {
	logger.Init(c.Logging)
	logger.Register("stream", logger.WithComponent("stream"))
	return c.Stream.Options()
}
