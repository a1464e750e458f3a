package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fusexd/metacore/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the fusexmetad configuration.
//
// This structure captures the static, process-wide configuration of the
// metadata-server core: logging, tracing, metrics, and the tunable windows
// that drive the heartbeat registry, CAP lifecycle, broadcast fan-out,
// quota sweeps, and directory listing limits (spec.md §6).
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FUSEXMETAD_*) (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// No command-line flag overrides an individual setting; --config only
// selects the file.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Heartbeat controls the client registry's heartbeat state machine
	// (spec.md §6: heartBeatInterval, heartBeatWindow,
	// heartBeatOfflineWindow, heartBeatRemoveWindow, PROTOCOLV2).
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat" yaml:"heartbeat"`

	// Cap controls CAP issuance, grace windows, and the recycle-bin path.
	Cap CapConfig `mapstructure:"cap" yaml:"cap"`

	// Broadcast controls fan-out suppression to large, noisy audiences.
	Broadcast BroadcastConfig `mapstructure:"broadcast" yaml:"broadcast"`

	// Quota controls the background quota-sweep cadence and aging.
	Quota QuotaConfig `mapstructure:"quota" yaml:"quota"`

	// Listing controls directory-listing batching and hard caps.
	Listing ListingConfig `mapstructure:"listing" yaml:"listing"`
}

// HeartbeatConfig holds the heartbeat state-machine windows spec.md §6
// lists as recognized configuration knobs (registry.Config's on-disk form).
type HeartbeatConfig struct {
	// Interval is the tick period between heartbeat-monitor sweeps.
	Interval time.Duration `mapstructure:"interval" validate:"required,gt=0" yaml:"interval"`

	// Window is how long a client may go without a heartbeat before it
	// is marked offline-pending.
	Window time.Duration `mapstructure:"window" validate:"required,gt=0" yaml:"window"`

	// OfflineWindow is how long a client may remain unresponsive before
	// it transitions to offline.
	OfflineWindow time.Duration `mapstructure:"offline_window" validate:"required,gt=0" yaml:"offline_window"`

	// RemoveWindow is how long an offline client is retained before its
	// registry entry is purged.
	RemoveWindow time.Duration `mapstructure:"remove_window" validate:"required,gt=0" yaml:"remove_window"`

	// MinProtocolVersion is PROTOCOLV2's minimum accepted client
	// version string; clients below it are queued for eviction.
	MinProtocolVersion string `mapstructure:"min_protocol_version" yaml:"min_protocol_version"`

	// RefreshEntrySuppressBelow silences RefreshEntry (not SendMD) for
	// clients running a known-buggy version below this threshold.
	RefreshEntrySuppressBelow string `mapstructure:"refresh_entry_suppress_below" yaml:"refresh_entry_suppress_below"`

	// Rate is the maximum number of heartbeats processed per monitor tick.
	Rate int `mapstructure:"rate" validate:"omitempty,min=1" yaml:"rate"`

	// ServerVersion is advertised to clients in heartbeat responses.
	ServerVersion string `mapstructure:"server_version" validate:"required" yaml:"server_version"`
}

// CapConfig holds CAP issuance and lifecycle tuning.
type CapConfig struct {
	// GraceWindow is ValidateCAP's near-expiry grace window: a cap whose
	// vtime is within this window of now is treated as already expired.
	GraceWindow time.Duration `mapstructure:"grace_window" validate:"required,gt=0" yaml:"grace_window"`

	// ClockSkewTolerance is GETCAP's maximum accepted client-clock lead
	// over the server clock.
	ClockSkewTolerance time.Duration `mapstructure:"clock_skew_tolerance" validate:"required,gt=0" yaml:"clock_skew_tolerance"`

	// ChildCapLimit is the maximum number of dot-prefixed children that
	// receive an attached child cap per listing.
	ChildCapLimit int `mapstructure:"child_cap_limit" validate:"omitempty,min=1" yaml:"child_cap_limit"`

	// RecycleEnabled toggles the recycle-bin path for file DELETE/MOVE.
	RecycleEnabled bool `mapstructure:"recycle_enabled" yaml:"recycle_enabled"`

	// EvalUserACL is the default for sys.eval.useracl when a directory
	// carries no explicit attribute.
	EvalUserACL bool `mapstructure:"eval_user_acl" yaml:"eval_user_acl"`
}

// BroadcastConfig controls fan-out suppression for hot inodes with
// oversized audiences (spec.md §6: BroadCastMaxAudience,
// BroadCastAudienceSuppressMatch).
type BroadcastConfig struct {
	// MaxAudience is the candidate count above which suppression
	// matching activates.
	MaxAudience int `mapstructure:"max_audience" validate:"omitempty,min=1" yaml:"max_audience"`

	// AudienceSuppressMatch is a regular expression matched against a
	// client's AppTag; matching clients are dropped from an
	// over-threshold broadcast's recipient list.
	AudienceSuppressMatch string `mapstructure:"audience_suppress_match" yaml:"audience_suppress_match"`
}

// QuotaConfig controls the CAP monitor's periodic quota recomputation
// (spec.md §6: QuotaCheckInterval).
type QuotaConfig struct {
	// CheckInterval is the number of CAP-monitor ticks between quota
	// sweeps.
	CheckInterval int `mapstructure:"check_interval" validate:"omitempty,min=1" yaml:"check_interval"`

	// OutOfQuotaAgeOut is how long a quota node may remain in the
	// out-of-quota state, unchanged, before it is aged out of tracking.
	OutOfQuotaAgeOut time.Duration `mapstructure:"out_of_quota_age_out" validate:"required,gt=0" yaml:"out_of_quota_age_out"`
}

// ListingConfig controls LS batching and the MAX_CHILDREN hard cap
// (spec.md §4.4, §6).
type ListingConfig struct {
	// MaxChildren is the hard cap on a single directory's listing size.
	MaxChildren int `mapstructure:"max_children" validate:"omitempty,min=1" yaml:"max_children"`

	// ExemptAppTags bypasses MaxChildren for callers whose AppTag
	// matches one of these.
	ExemptAppTags []string `mapstructure:"exempt_app_tags" yaml:"exempt_app_tags,omitempty"`

	// FlushBatch is how many attached children accumulate before a
	// batch flush point to the wire.
	FlushBatch int `mapstructure:"flush_batch" validate:"omitempty,min=1" yaml:"flush_batch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FUSEXMETAD_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig()
// and environment variables are not applied.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  fusexmetad config init\n\n"+
				"Or specify a custom config file:\n"+
				"  fusexmetad <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  fusexmetad config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FUSEXMETAD_ prefix and underscores
	// Example: FUSEXMETAD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FUSEXMETAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only overrides keys viper already knows, so register
	// every Config key; otherwise Unmarshal would ignore an environment
	// variable for a key the config file does not mention.
	var bindEnv func(prefix string, t reflect.Type)
	bindEnv = func(prefix string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct {
				bindEnv(key+".", f.Type)
				continue
			}
			_ = v.BindEnv(key)
		}
	}
	bindEnv("", reflect.TypeOf(Config{}))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fusexmetad")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fusexmetad")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
