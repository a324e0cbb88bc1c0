package stream

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/typer"
)

// Defaults for byte pipelines.
const (
	DefaultChunkSize = 64 * 1024
	DefaultZstdLevel = 3
	DefaultMaxWindow = 1 << 31
	DefaultCharset   = "utf-8"
)

// Option configures a pipeline. Options given to a constructor are inherited
// by every handle derived from it.
type Option func(*options)

type options struct {
	reg       *typer.Registry
	log       *logger.Logger
	metrics   *observability.Metrics
	chunkSize int
	zstdLevel int
	maxWindow uint64
	charset   string
}

// WithRegistry resolves members and operators in reg instead of
// typer.Default.
func WithRegistry(reg *typer.Registry) Option {
	return func(o *options) { o.reg = reg }
}

// WithLogger replaces the "stream" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records terminal operations on m instead of the global meter.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithChunkSize sets the read size of byte sources and decoders.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithZstdLevel sets the level Zstd uses when called with level 0.
func WithZstdLevel(level int) Option {
	return func(o *options) {
		if level > 0 {
			o.zstdLevel = level
		}
	}
}

// WithMaxWindow caps the zstd decoder window.
func WithMaxWindow(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWindow = n
		}
	}
}

// WithCharset sets the charset Decode and Encode use for an empty name.
func WithCharset(name string) Option {
	return func(o *options) {
		if name != "" {
			o.charset = name
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		chunkSize: DefaultChunkSize,
		zstdLevel: DefaultZstdLevel,
		maxWindow: DefaultMaxWindow,
		charset:   DefaultCharset,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reg == nil {
		o.reg = typer.Default
	}
	if o.log == nil {
		o.log = logger.Get("stream")
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics()
	}
	return o
}

// inherit returns an Option that copies o, for handles derived from one
// built with o.
func (o *options) inherit() Option {
	return func(dst *options) { *dst = *o }
}

// run wraps a terminal in an observability operation.
func (o *options) run(ctx context.Context, name string, fn func(context.Context, *observability.Operation) error, attrs ...attribute.KeyValue) error {
	ctx, op := observability.StartOperation(ctx, name, o.metrics, attrs...)
	err := fn(ctx, op)
	op.End(ctx, err)
	if err != nil {
		o.log.Debug("terminal failed", logger.Fields(logger.FieldOperation, name, logger.FieldError, err.Error()))
	}
	return err
}
