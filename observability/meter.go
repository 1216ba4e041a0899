package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/prefetchkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider must be shut down on exit to flush pending points.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// PassMetrics records whole passes over a dataset. Per-item pipeline
// counters live in the prefetch package.
type PassMetrics struct {
	passTotal    metric.Int64Counter
	passDuration metric.Float64Histogram
	recordTotal  metric.Int64Counter
	byteTotal    metric.Int64Counter
	errorTotal   metric.Int64Counter
}

// NewPassMetrics creates the pass instruments on the given meter.
func NewPassMetrics(meter metric.Meter) (*PassMetrics, error) {
	passTotal, err := meter.Int64Counter("pass.total",
		metric.WithDescription("Completed passes over a dataset"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass.total counter: %w", err)
	}

	passDuration, err := meter.Float64Histogram("pass.duration",
		metric.WithDescription("Duration of a pass in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass.duration histogram: %w", err)
	}

	recordTotal, err := meter.Int64Counter("pass.records",
		metric.WithDescription("Records consumed by passes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass.records counter: %w", err)
	}

	byteTotal, err := meter.Int64Counter("pass.bytes",
		metric.WithDescription("Payload bytes consumed by passes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass.bytes counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pass.errors",
		metric.WithDescription("Passes that ended with an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pass.errors counter: %w", err)
	}

	return &PassMetrics{
		passTotal:    passTotal,
		passDuration: passDuration,
		recordTotal:  recordTotal,
		byteTotal:    byteTotal,
		errorTotal:   errorTotal,
	}, nil
}

// RecordPass records one finished pass. A non-nil err counts the pass as
// failed; records and bytes are still added.
func (m *PassMetrics) RecordPass(ctx context.Context, dataset string, records, bytes int64, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrDataset, dataset),
		attribute.String(AttrStatus, status),
	)
	m.passTotal.Add(ctx, 1, attrs)
	m.passDuration.Record(ctx, duration.Seconds(), attrs)
	m.recordTotal.Add(ctx, records, metric.WithAttributes(attribute.String(AttrDataset, dataset)))
	m.byteTotal.Add(ctx, bytes, metric.WithAttributes(attribute.String(AttrDataset, dataset)))
	if err != nil {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrDataset, dataset)))
	}
}
