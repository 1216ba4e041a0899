package prefetch

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/prefetchkit/logger"
)

// DefaultCapacity is the ready queue bound used when none is given.
const DefaultCapacity = 8

type options struct {
	log   *logger.Logger
	meter metric.Meter
}

// Option configures a pipeline at construction.
type Option func(*options)

// WithLogger sets the base logger. Pipelines default to logger.Get("prefetch").
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMeter records pipeline metrics on m. Without it metrics go to a noop meter.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("prefetch")
	}
	return o
}
