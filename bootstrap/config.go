package bootstrap

import (
	"github.com/kbukum/prefetchkit/config"
)

// Config is the interface constraint for application configuration types.
// Any struct that embeds config.ServiceConfig (value embedding) automatically
// satisfies this interface via promoted methods.
//
// Example:
//
//	type DigestConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Prefetch prefetch.Config `yaml:"prefetch" mapstructure:"prefetch"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
