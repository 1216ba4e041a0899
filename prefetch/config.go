package prefetch

import (
	"github.com/kbukum/prefetchkit/validation"
)

// Config sizes a prefetch pipeline.
type Config struct {
	// Capacity bounds the single-producer ready queue.
	Capacity int `yaml:"capacity" mapstructure:"capacity" validate:"min=1"`
	// Workers is the transform pool size of a multi-producer pipeline.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=1,max=1024"`
	// WorkerCapacity bounds the multi-producer output queue. Defaults to Capacity.
	WorkerCapacity int `yaml:"worker_capacity" mapstructure:"worker_capacity" validate:"min=1"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.WorkerCapacity == 0 {
		c.WorkerCapacity = c.Capacity
	}
}

// Validate checks the configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
