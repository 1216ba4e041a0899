// Package config loads command configuration from config.yml, .env files
// and environment variables.
//
// It uses Viper for the YAML file and godotenv for .env files. Every
// environment variable is bound under several nested key spellings, so
// PREFETCH_CAPACITY overrides prefetch.capacity without any registration.
//
// # Usage
//
//	var cfg DigestConfig
//	if err := config.LoadConfig("prefetch-digest", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
