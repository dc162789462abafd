package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/slotwatch/internal/common"
	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
// Validation failures here are configuration errors: the one category the
// monitor treats as fatal.
func ValidateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return common.NewConfigurationError("", "", "config cannot be nil")
	}

	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("fetchmode", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "browser", "static":
			return true
		default:
			return false
		}
	})

	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			var messages []string
			for _, e := range errs {
				msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", e.StructNamespace(), e.Tag())
				if e.Param() != "" {
					msg += fmt.Sprintf(" (expected: %s)", e.Param())
				}
				if e.Value() != nil && e.Value() != "" {
					msg += fmt.Sprintf(", actual: '%v'", e.Value())
				}
				messages = append(messages, msg)
			}
			return common.NewConfigurationError("", "", strings.Join(messages, "; "))
		}
		return common.WrapError(err, "configuration validation error")
	}

	// Cross-field rules the tag language can't express.
	if cfg.FetcherConfig.SourceURL == "" {
		return common.NewConfigurationError("fetcher_config", "source_url", "source URL is required")
	}
	if cfg.MonitorConfig.CheckIntervalMs <= 0 && cfg.MonitorConfig.CheckInterval <= 0 {
		return common.NewConfigurationError("monitor_config", "check_interval_ms", "check interval must be positive")
	}
	if cfg.NotificationConfig.LogFileEnabled && cfg.NotificationConfig.LogFilePath == "" {
		return common.NewConfigurationError("notification_config", "log_file_path", "log file path required when log file channel enabled")
	}

	return nil
}
