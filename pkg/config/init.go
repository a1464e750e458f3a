package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented sample configuration written by
// InitConfig/InitConfigToPath. It documents every section with its
// default value so an operator can start from a working file and only
// touch the knobs that matter to their deployment.
const configTemplate = `# FuseX Metadata Server Configuration File
#
# This file configures fusexmetad, the FuseX metadata server core.
# Every value shown here is the built-in default; uncomment and edit
# only the settings you need to change.
#
# Environment variables override this file: FUSEXMETAD_<SECTION>_<KEY>,
# e.g. FUSEXMETAD_LOGGING_LEVEL=DEBUG.

logging:
  level: "INFO"
  format: "text"
  output: "stdout"

telemetry:
  enabled: false
  endpoint: "localhost:4317"
  insecure: true
  sample_rate: 1.0

metrics:
  enabled: false
  port: 9090

shutdown_timeout: 30s

heartbeat:
  interval: 1s
  window: 15s
  offline_window: 75s
  remove_window: 72h
  min_protocol_version: "0"
  refresh_entry_suppress_below: "4.4.18"
  rate: 10
  server_version: "fusexmetad"

cap:
  grace_window: 60s
  clock_skew_tolerance: 2s
  child_cap_limit: 16
  recycle_enabled: true
  eval_user_acl: false

broadcast:
  max_audience: 1000
  audience_suppress_match: ""

quota:
  check_interval: 60
  out_of_quota_age_out: 1h

listing:
  max_children: 131072
  flush_batch: 128
`

// InitConfig creates a sample configuration file at the default location
// ($XDG_CONFIG_HOME/fusexmetad/config.yaml). If force is false and a file
// already exists there, it returns an error instead of overwriting it.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
// If force is false and a file already exists there, it returns an error
// instead of overwriting it.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
