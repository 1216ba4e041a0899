// Package validation validates configuration structs through
// go-playground/validator struct tags.
//
//	type Config struct {
//	    Capacity int `mapstructure:"capacity" validate:"min=1"`
//	}
//
//	if err := validation.Validate(cfg); err != nil {
//	    // err is an *errors.AppError with code INVALID_CONFIG
//	}
package validation
