package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/storage"
	"github.com/kbukum/streamkit/stream"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "streamkit.yml", `
name: ingest
environment: staging
logging:
  level: debug
  format: console
stream:
  chunk_size: 4096
  zstd_level: 19
  charset: latin1
storage:
  provider: local
  base_path: `+dir+`
observability:
  metric_interval: 30s
`)

	cfg, err := Load(WithConfigFile(path), WithFileSystem(RealFileSystem{}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "ingest" || cfg.Environment != "staging" {
		t.Errorf("unexpected identity %q/%q", cfg.Name, cfg.Environment)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
	want := StreamConfig{ChunkSize: 4096, ZstdLevel: 19, Charset: "latin1"}
	if diff := cmp.Diff(want, cfg.Stream); diff != "" {
		t.Errorf("stream config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Storage.BasePath != dir {
		t.Errorf("expected base path %q, got %q", dir, cfg.Storage.BasePath)
	}
	if cfg.Observability.MetricInterval != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.Observability.MetricInterval)
	}
	if cfg.Observability.ServiceName != "ingest" {
		t.Errorf("expected service name to default to config name, got %q", cfg.Observability.ServiceName)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "streamkit.yml", "stream:\n  chunk_size: 100\n")
	t.Setenv("STREAMKIT_STREAM_CHUNK_SIZE", "2048")
	t.Setenv("STREAMKIT_LOGGING_LEVEL", "error")

	cfg, err := Load(WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.ChunkSize != 2048 {
		t.Errorf("expected env override 2048, got %d", cfg.Stream.ChunkSize)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected logging level error, got %q", cfg.Logging.Level)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "STREAMKIT_TEST_ENVFILE_NAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("STREAMKIT_TEST_ENVFILE_NAME") })

	type appConfig struct {
		Test struct {
			Envfile struct {
				Name string `mapstructure:"name"`
			} `mapstructure:"envfile"`
		} `mapstructure:"test"`
	}
	var cfg appConfig
	if err := LoadInto(&cfg, WithConfigFile(filepath.Join(dir, "none.yml")), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadInto failed: %v", err)
	}
	if cfg.Test.Envfile.Name != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", cfg.Test.Envfile.Name)
	}
}

func TestLoadWithEnvPrefix(t *testing.T) {
	t.Setenv("INGEST_NAME", "custom")
	cfg, err := Load(WithEnvPrefix("ingest_"), WithFileSystem(&mockFS{}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "custom" {
		t.Errorf("expected name from INGEST_NAME, got %q", cfg.Name)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "streamkit.yml", `
environment: moon
stream:
  zstd_level: 40
  charset: klingon
`)
	_, err := Load(WithConfigFile(path))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	for _, want := range []string{"environment", "stream.charset"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "streamkit.yml", "stream: [unclosed\n")
	_, err := Load(WithConfigFile(path))
	if !errors.IsCode(err, errors.ErrCodeSourceRead) {
		t.Errorf("expected source read error, got %v", err)
	}
}

func TestStreamConfigValidate(t *testing.T) {
	c := StreamConfig{}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if c.ChunkSize != stream.DefaultChunkSize || c.ZstdLevel != stream.DefaultZstdLevel || c.Charset != "utf-8" {
		t.Errorf("unexpected defaults %+v", c)
	}

	bad := StreamConfig{ChunkSize: 10, ZstdLevel: 23, Charset: "utf-8"}
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "stream.zstd_level") {
		t.Errorf("expected zstd level error, got %v", err)
	}
}

func TestStreamConfigOptions(t *testing.T) {
	c := StreamConfig{ChunkSize: 3, MaxWindow: 1 << 20}
	if got := len(c.Options()); got != 2 {
		t.Errorf("expected 2 options, got %d", got)
	}

	s := stream.FromString("hello", c.Options()...).Encode("utf-8").Chunk(0)
	chunks, err := s.ToList(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected the configured chunk size to split into 2 chunks, got %d", len(chunks))
	}
}

func TestConfigStorageFromS3Section(t *testing.T) {
	cfg := Config{
		Storage: storage.Config{Provider: storage.ProviderS3},
	}
	cfg.S3.Bucket = "bucket"
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("s3 section bucket should satisfy storage validation: %v", err)
	}
	sc := cfg.storageConfig()
	if sc.Bucket != "bucket" {
		t.Errorf("expected bucket from s3 section, got %q", sc.Bucket)
	}
}

func TestNewStorageLocalNotLinked(t *testing.T) {
	cfg := Config{Storage: storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}}
	cfg.ApplyDefaults()
	if _, err := cfg.NewStorage(nil); err == nil {
		t.Error("expected an error when the local backend is not linked in")
	}
}

func TestResolveFilesWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/streamkit.yml": true,
		"../.env":                true,
	}}
	files := ResolveFiles(LoaderConfig{FileSystem: fs})
	if files.ConfigFile != "./config/streamkit.yml" {
		t.Errorf("unexpected config file %q", files.ConfigFile)
	}
	if files.EnvFile != "../.env" {
		t.Errorf("unexpected env file %q", files.EnvFile)
	}

	explicit := ResolveFiles(LoaderConfig{FileSystem: fs, ConfigFile: "x.yml"})
	if explicit.ConfigFile != "x.yml" {
		t.Errorf("explicit config file should win, got %q", explicit.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error { return nil }

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("STREAM_CHUNK_SIZE")
	want := []string{"stream_chunk_size", "stream.chunk_size", "stream.chunk.size"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variants mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name"}, envKeyVariants("NAME")); diff != "" {
		t.Errorf("single part mismatch:\n%s", diff)
	}
}

func TestApplyInstallsLoggerAndOptions(t *testing.T) {
	cfg := Config{Stream: StreamConfig{ChunkSize: 3}}
	cfg.Logging.Level = "disabled"
	cfg.ApplyDefaults()

	opts := cfg.Apply()
	t.Cleanup(func() { logger.SetGlobalLogger(logger.Nop()) })

	if len(opts) != len(cfg.Stream.Options()) {
		t.Errorf("Apply returned %d options, want %d", len(opts), len(cfg.Stream.Options()))
	}
	if logger.Get("stream") == nil {
		t.Error("stream logger not registered")
	}
	chunks, err := stream.FromString("hello", opts...).Encode("").Chunk(0).ToList(t.Context())
	if err != nil || len(chunks) != 2 {
		t.Errorf("chunks = %d, %v; want 2", len(chunks), err)
	}
}
