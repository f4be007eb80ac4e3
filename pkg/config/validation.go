package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks cfg against its struct tags plus a handful of
// cross-field rules that can't be expressed as tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Replay.Backend == "s3" && cfg.Replay.S3.Bucket == "" {
		return fmt.Errorf("replay.s3.bucket: required when replay.backend is \"s3\"")
	}
	if cfg.Stats.Store == "badger" && cfg.Stats.BadgerPath == "" {
		return fmt.Errorf("stats.badger_path: required when stats.store is \"badger\"")
	}
	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on %q tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
