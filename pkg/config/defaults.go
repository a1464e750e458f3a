package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyShutdownDefaults(cfg)
	applyHeartbeatDefaults(&cfg.Heartbeat)
	applyCapDefaults(&cfg.Cap)
	applyBroadcastDefaults(&cfg.Broadcast)
	applyQuotaDefaults(&cfg.Quota)
	applyListingDefaults(&cfg.Listing)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyShutdownDefaults sets the graceful-shutdown timeout default.
func applyShutdownDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyHeartbeatDefaults mirrors registry.DefaultConfig's windows, the
// values spec.md §6 names for heartBeatInterval/Window/OfflineWindow/
// RemoveWindow and PROTOCOLV2.
func applyHeartbeatDefaults(cfg *HeartbeatConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 1 * time.Second
	}
	if cfg.Window == 0 {
		cfg.Window = 15 * time.Second
	}
	if cfg.OfflineWindow == 0 {
		cfg.OfflineWindow = 75 * time.Second
	}
	if cfg.RemoveWindow == 0 {
		cfg.RemoveWindow = 3 * 24 * time.Hour
	}
	if cfg.MinProtocolVersion == "" {
		cfg.MinProtocolVersion = "0"
	}
	if cfg.RefreshEntrySuppressBelow == "" {
		cfg.RefreshEntrySuppressBelow = "4.4.18"
	}
	if cfg.Rate == 0 {
		cfg.Rate = 10
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "fusexmetad"
	}
}

// applyCapDefaults mirrors dispatch.DefaultConfig's CAP-related knobs.
func applyCapDefaults(cfg *CapConfig) {
	if cfg.GraceWindow == 0 {
		cfg.GraceWindow = 60 * time.Second
	}
	if cfg.ClockSkewTolerance == 0 {
		cfg.ClockSkewTolerance = 2 * time.Second
	}
	if cfg.ChildCapLimit == 0 {
		cfg.ChildCapLimit = 16
	}
	// RecycleEnabled's zero value (false) is indistinguishable from an
	// explicit "disable recycling", so the true default lives in
	// GetDefaultConfig rather than here.
}

// applyBroadcastDefaults mirrors broadcast.Config's audience threshold.
func applyBroadcastDefaults(cfg *BroadcastConfig) {
	if cfg.MaxAudience == 0 {
		cfg.MaxAudience = 1000
	}
}

// applyQuotaDefaults sets the CAP monitor's quota-sweep cadence.
func applyQuotaDefaults(cfg *QuotaConfig) {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 60
	}
	if cfg.OutOfQuotaAgeOut == 0 {
		cfg.OutOfQuotaAgeOut = 1 * time.Hour
	}
}

// applyListingDefaults mirrors dispatch.DefaultConfig's LS knobs,
// including spec.md §6's MAX_CHILDREN.
func applyListingDefaults(cfg *ListingConfig) {
	if cfg.MaxChildren == 0 {
		cfg.MaxChildren = 131072
	}
	if cfg.FlushBatch == 0 {
		cfg.FlushBatch = 128
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Cap: CapConfig{
			RecycleEnabled: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
