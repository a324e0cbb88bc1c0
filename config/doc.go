// Package config loads streamkit settings from a YAML file, a .env file and
// STREAMKIT_* environment variables.
//
//	cfg, err := config.Load()
//	store, err := cfg.NewStorage(log)
//	s := stream.Of(data, cfg.Stream.Options()...)
//
// Environment variables override file values. Nested keys are joined with
// underscores: STREAMKIT_STREAM_CHUNK_SIZE sets stream.chunk_size.
package config
