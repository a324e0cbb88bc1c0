// Package validation checks configuration and option values.
//
// Struct tags are checked with go-playground/validator; field names in
// messages are the mapstructure keys used in configuration files:
//
//	type StreamConfig struct {
//	    ChunkSize int    `mapstructure:"chunk_size" validate:"gte=0"`
//	    Charset   string `mapstructure:"charset" validate:"omitempty,charset"`
//	}
//	err := validation.Validate(cfg)
//
// Rules that tags cannot express are collected programmatically:
//
//	v := validation.New()
//	v.Range("zstd_level", level, 1, 22)
//	err := v.Error()
package validation
