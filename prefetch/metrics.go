package prefetch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/kbukum/prefetchkit/logger"
)

const meterName = "github.com/kbukum/prefetchkit/prefetch"

// Metrics holds the OpenTelemetry instruments of one pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	produced  metric.Int64Counter
	consumed  metric.Int64Counter
	recycled  metric.Int64Counter
	allocated metric.Int64Counter
	resets    metric.Int64Counter
	depth     metric.Int64UpDownCounter
	attrs     metric.MeasurementOption
}

// NewMetrics creates the pipeline instruments on meter, tagging every
// measurement with the pipeline kind.
func NewMetrics(meter metric.Meter, kind string) (*Metrics, error) {
	produced, err := meter.Int64Counter("prefetch.produced",
		metric.WithDescription("Cells filled by the producer or transform workers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.produced counter: %w", err)
	}

	consumed, err := meter.Int64Counter("prefetch.consumed",
		metric.WithDescription("Cells handed to the consumer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.consumed counter: %w", err)
	}

	recycled, err := meter.Int64Counter("prefetch.recycled",
		metric.WithDescription("Cells returned to the free list"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.recycled counter: %w", err)
	}

	allocated, err := meter.Int64Counter("prefetch.allocated",
		metric.WithDescription("Produce calls that had no free cell to reuse"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.allocated counter: %w", err)
	}

	resets, err := meter.Int64Counter("prefetch.resets",
		metric.WithDescription("Completed rewinds to the start of the stream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.resets counter: %w", err)
	}

	depth, err := meter.Int64UpDownCounter("prefetch.queue.depth",
		metric.WithDescription("Cells waiting in the ready queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prefetch.queue.depth gauge: %w", err)
	}

	return &Metrics{
		produced:  produced,
		consumed:  consumed,
		recycled:  recycled,
		allocated: allocated,
		resets:    resets,
		depth:     depth,
		attrs:     metric.WithAttributes(attribute.String("pipeline.kind", kind)),
	}, nil
}

func newPipelineMetrics(meter metric.Meter, kind string, log *logger.Logger) *Metrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}
	m, err := NewMetrics(meter, kind)
	if err != nil {
		log.Warn("metrics disabled", logger.ErrorFields("metrics", err))
		return nil
	}
	return m
}

func (m *Metrics) recordProduced() {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.produced.Add(ctx, 1, m.attrs)
	m.depth.Add(ctx, 1, m.attrs)
}

func (m *Metrics) recordConsumed() {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.consumed.Add(ctx, 1, m.attrs)
	m.depth.Add(ctx, -1, m.attrs)
}

// recordDiscarded accounts for queued cells dropped back to the free list by a reset.
func (m *Metrics) recordDiscarded(n int) {
	if m == nil || n == 0 {
		return
	}
	m.depth.Add(context.Background(), int64(-n), m.attrs)
}

func (m *Metrics) recordRecycled() {
	if m == nil {
		return
	}
	m.recycled.Add(context.Background(), 1, m.attrs)
}

func (m *Metrics) recordAllocated() {
	if m == nil {
		return
	}
	m.allocated.Add(context.Background(), 1, m.attrs)
}

func (m *Metrics) recordReset() {
	if m == nil {
		return
	}
	m.resets.Add(context.Background(), 1, m.attrs)
}
