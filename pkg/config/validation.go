package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New()

// Validate checks a Config for structural errors beyond what the
// `validate` struct tags express on their own: cross-field rules like
// "telemetry endpoint is required when telemetry is enabled".
func Validate(cfg *Config) error {
	if err := configValidator.Struct(cfg); err != nil {
		return fmt.Errorf("%w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	if cfg.Heartbeat.OfflineWindow < cfg.Heartbeat.Window {
		return fmt.Errorf("heartbeat.offline_window must be >= heartbeat.window")
	}

	if cfg.Heartbeat.RemoveWindow < cfg.Heartbeat.OfflineWindow {
		return fmt.Errorf("heartbeat.remove_window must be >= heartbeat.offline_window")
	}

	return nil
}
