package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Heartbeat(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Heartbeat.Interval != 1*time.Second {
		t.Errorf("Expected default heartbeat interval 1s, got %v", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.Window != 15*time.Second {
		t.Errorf("Expected default heartbeat window 15s, got %v", cfg.Heartbeat.Window)
	}
	if cfg.Heartbeat.OfflineWindow != 75*time.Second {
		t.Errorf("Expected default offline window 75s, got %v", cfg.Heartbeat.OfflineWindow)
	}
	if cfg.Heartbeat.RemoveWindow != 3*24*time.Hour {
		t.Errorf("Expected default remove window 72h, got %v", cfg.Heartbeat.RemoveWindow)
	}
	if cfg.Heartbeat.MinProtocolVersion != "0" {
		t.Errorf("Expected default min protocol version '0', got %q", cfg.Heartbeat.MinProtocolVersion)
	}
}

func TestApplyDefaults_Cap(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Cap.GraceWindow != 60*time.Second {
		t.Errorf("Expected default cap grace window 60s, got %v", cfg.Cap.GraceWindow)
	}
	if cfg.Cap.ClockSkewTolerance != 2*time.Second {
		t.Errorf("Expected default clock skew tolerance 2s, got %v", cfg.Cap.ClockSkewTolerance)
	}
	if cfg.Cap.ChildCapLimit != 16 {
		t.Errorf("Expected default child cap limit 16, got %d", cfg.Cap.ChildCapLimit)
	}
}

func TestApplyDefaults_Broadcast(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Broadcast.MaxAudience != 1000 {
		t.Errorf("Expected default max audience 1000, got %d", cfg.Broadcast.MaxAudience)
	}
}

func TestApplyDefaults_Quota(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Quota.CheckInterval != 60 {
		t.Errorf("Expected default quota check interval 60, got %d", cfg.Quota.CheckInterval)
	}
	if cfg.Quota.OutOfQuotaAgeOut != 1*time.Hour {
		t.Errorf("Expected default out-of-quota age-out 1h, got %v", cfg.Quota.OutOfQuotaAgeOut)
	}
}

func TestApplyDefaults_Listing(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Listing.MaxChildren != 131072 {
		t.Errorf("Expected default max children 131072, got %d", cfg.Listing.MaxChildren)
	}
	if cfg.Listing.FlushBatch != 128 {
		t.Errorf("Expected default flush batch 128, got %d", cfg.Listing.FlushBatch)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/fusexmetad.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Listing: ListingConfig{
			MaxChildren: 10,
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/fusexmetad.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Listing.MaxChildren != 10 {
		t.Errorf("Expected explicit max_children 10 to be preserved, got %d", cfg.Listing.MaxChildren)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Heartbeat.ServerVersion == "" {
		t.Error("Default config missing heartbeat server version")
	}
	if cfg.Listing.MaxChildren == 0 {
		t.Error("Default config missing listing max_children")
	}
}
