package main

import (
	"github.com/kbukum/prefetchkit/config"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/validation"
)

// Config is the prefetch-digest configuration. Every key can be overridden
// from the environment, e.g. PREFETCH_WORKERS=4 or INPUT_PATH=events.zst.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Input     InputConfig          `yaml:"input" mapstructure:"input"`
	Prefetch  prefetch.Config      `yaml:"prefetch" mapstructure:"prefetch"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// InputConfig selects the record file and how it is read.
type InputConfig struct {
	Path        string `yaml:"path" mapstructure:"path" validate:"required"`
	Compression string `yaml:"compression" mapstructure:"compression" validate:"oneof=none gzip zstd"`
	// Passes is the number of full reads of the file. Passes after the first
	// rewind the pipelines and must reproduce the first pass's checksum.
	Passes int `yaml:"passes" mapstructure:"passes" validate:"min=1,max=1000"`
	// Output receives one line per record of the first pass: "-" is stdout,
	// empty disables per-record output.
	Output string `yaml:"output" mapstructure:"output"`
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	// stdout carries the digest report.
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Prefetch.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	if c.Input.Compression == "" {
		c.Input.Compression = "none"
	}
	if c.Input.Passes == 0 {
		c.Input.Passes = 1
	}
}

// Validate checks every section. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}
