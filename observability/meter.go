package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/streamkit/logger"
)

// InitMeter installs an OTLP HTTP meter provider as the global provider.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))

	return mp, nil
}

// Meter returns the streamkit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the instruments recorded by pipeline terminals.
type Metrics struct {
	elementsTotal     metric.Int64Counter
	bytesTotal        metric.Int64Counter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	uploadFailures    metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	elementsTotal, err := meter.Int64Counter("streamkit.elements",
		metric.WithDescription("Elements pulled by terminal operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streamkit.elements counter: %w", err)
	}

	bytesTotal, err := meter.Int64Counter("streamkit.bytes",
		metric.WithDescription("Bytes produced by byte pipeline terminals"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streamkit.bytes counter: %w", err)
	}

	operationTotal, err := meter.Int64Counter("streamkit.operation.total",
		metric.WithDescription("Terminal operations run, by operation and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streamkit.operation.total counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram("streamkit.operation.duration",
		metric.WithDescription("Duration of terminal operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streamkit.operation.duration histogram: %w", err)
	}

	uploadFailures, err := meter.Int64Counter("streamkit.upload.failures",
		metric.WithDescription("Object store uploads that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating streamkit.upload.failures counter: %w", err)
	}

	return &Metrics{
		elementsTotal:     elementsTotal,
		bytesTotal:        bytesTotal,
		operationTotal:    operationTotal,
		operationDuration: operationDuration,
		uploadFailures:    uploadFailures,
	}, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on the global meter. Instruments created
// before InitMeter forward to the provider installed later.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(Meter())
		if err != nil {
			logger.Get("observability").Warn("falling back to no-op metrics", logger.ErrorFields("metrics", err))
			m, _ = NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordOperation records one completed terminal operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation, status string, elements, bytes int64, duration time.Duration) {
	op := attribute.String("operation", operation)
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(op, attribute.String("status", status)))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(op))
	if elements > 0 {
		m.elementsTotal.Add(ctx, elements, metric.WithAttributes(op))
	}
	if bytes > 0 {
		m.bytesTotal.Add(ctx, bytes, metric.WithAttributes(op))
	}
}

// RecordUploadFailure counts a failed object store upload.
func (m *Metrics) RecordUploadFailure(ctx context.Context, store string) {
	m.uploadFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("store", store)))
}
