package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/streamkit/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "streamkit")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "   ")
	if !v2.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRange(t *testing.T) {
	v := New()
	v.Range("zstd_level", 3, 1, 22)
	if v.HasErrors() {
		t.Error("expected no error for value in range")
	}

	v2 := New()
	v2.Range("zstd_level", 0, 1, 22)
	v2.Range("zstd_level", 23, 1, 22)
	if len(v2.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %d", len(v2.Errors()))
	}
}

func TestValidatorMin(t *testing.T) {
	v := New()
	v.Min("chunk_size", 0, 1)
	if !v.HasErrors() {
		t.Error("expected error for value below min")
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("provider", "local", []string{"local", "s3"})
	v.OneOf("provider", "", []string{"local"})
	if v.HasErrors() {
		t.Errorf("unexpected errors %v", v.Errors())
	}

	v2 := New()
	v2.OneOf("provider", "ftp", []string{"local", "s3"})
	if !v2.HasErrors() {
		t.Error("expected error for value outside the allowed set")
	}
}

func TestValidatorCharset(t *testing.T) {
	v := New()
	v.Charset("charset", "utf-8").Charset("charset", "latin1").Charset("charset", "")
	if v.HasErrors() {
		t.Errorf("unexpected errors %v", v.Errors())
	}

	v2 := New()
	v2.Charset("charset", "klingon")
	if !v2.HasErrors() {
		t.Error("expected error for unknown charset")
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New()
	v.Custom(false, "field", "custom error")
	if v.Errors()[0].Message != "custom error" {
		t.Errorf("expected 'custom error', got %q", v.Errors()[0].Message)
	}
}

func TestValidatorValidate(t *testing.T) {
	if New().Required("name", "x").Error() != nil {
		t.Error("expected nil for valid input")
	}

	v := New()
	v.Required("name", "")
	v.Min("chunk_size", -1, 0)
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("unexpected code %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "name") || !strings.Contains(appErr.Message, "chunk_size") {
		t.Errorf("expected both fields in message, got %q", appErr.Message)
	}
	if _, ok := appErr.Details["fields"].([]FieldError); !ok {
		t.Errorf("expected field details, got %#v", appErr.Details)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	if v.Required("name", "x").Range("n", 1, 0, 2).Min("m", 3, 1) != v {
		t.Error("expected chaining to return same validator")
	}
}

type innerConfig struct {
	ChunkSize int    `mapstructure:"chunk_size" validate:"gte=0"`
	Charset   string `mapstructure:"charset" validate:"omitempty,charset"`
}

type outerConfig struct {
	Name   string      `mapstructure:"name" validate:"required"`
	Format string      `mapstructure:"format" validate:"omitempty,oneof=json console"`
	Stream innerConfig `mapstructure:"stream"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := outerConfig{Name: "svc", Format: "json", Stream: innerConfig{ChunkSize: 10, Charset: "iso-8859-1"}}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	cfg := outerConfig{Format: "xml", Stream: innerConfig{ChunkSize: -1, Charset: "nope"}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input code, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"name: is required", "format: must be one of: json console", "stream.chunk_size", "stream.charset"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("ChunkSize"); got != "chunk_size" {
		t.Errorf("expected chunk_size, got %q", got)
	}
}
