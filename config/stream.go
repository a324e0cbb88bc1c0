package config

import (
	"github.com/kbukum/streamkit/stream"
	"github.com/kbukum/streamkit/validation"
)

// StreamConfig holds pipeline defaults.
type StreamConfig struct {
	// ChunkSize is the read size of byte sources in bytes.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=0"`
	// ZstdLevel is the default compression level of Zstd stages.
	ZstdLevel int `yaml:"zstd_level" mapstructure:"zstd_level"`
	// MaxWindow caps the zstd decoder window in bytes; 0 keeps the decoder
	// default.
	MaxWindow uint64 `yaml:"max_window" mapstructure:"max_window"`
	// Charset is the default encoding for Decode and Encode.
	Charset string `yaml:"charset" mapstructure:"charset" validate:"omitempty,charset"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *StreamConfig) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = stream.DefaultChunkSize
	}
	if c.ZstdLevel == 0 {
		c.ZstdLevel = stream.DefaultZstdLevel
	}
	if c.Charset == "" {
		c.Charset = "utf-8"
	}
}

// Validate checks ranges the struct tags do not cover.
func (c *StreamConfig) Validate() error {
	return validation.New().
		Min("stream.chunk_size", c.ChunkSize, 1).
		Range("stream.zstd_level", c.ZstdLevel, 1, 22).
		Charset("stream.charset", c.Charset).
		Error()
}

// Options converts the settings to stream options.
func (c StreamConfig) Options() []stream.Option {
	opts := []stream.Option{}
	if c.ChunkSize > 0 {
		opts = append(opts, stream.WithChunkSize(c.ChunkSize))
	}
	if c.ZstdLevel > 0 {
		opts = append(opts, stream.WithZstdLevel(c.ZstdLevel))
	}
	if c.MaxWindow > 0 {
		opts = append(opts, stream.WithMaxWindow(c.MaxWindow))
	}
	if c.Charset != "" {
		opts = append(opts, stream.WithCharset(c.Charset))
	}
	return opts
}
