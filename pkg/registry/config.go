package registry

import "time"

// Config holds the heartbeat state-machine windows spec.md §6 lists as
// recognized configuration knobs. Defaults mirror the original's.
type Config struct {
	HeartbeatInterval      time.Duration
	HeartbeatWindow        time.Duration
	HeartbeatOfflineWindow time.Duration
	HeartbeatRemoveWindow  time.Duration

	// MinProtocolVersion is the PROTOCOLV2 minimum supported client
	// version; clients below it are queued for version-mismatch
	// eviction.
	MinProtocolVersion string

	// RefreshEntrySuppressBelow is the known-buggy-refresh version
	// threshold (<4.4.18 in the original); clients below it are
	// silenced for RefreshEntry only (SendMD still reaches them).
	RefreshEntrySuppressBelow string

	HeartbeatRate  int
	AppName        string
	ServerVersion  string
	HideVersion    bool
	DentryMessage  bool
	WriteSizeFlush bool
	MDQuery        bool
}

// DefaultConfig returns the windows the original ships by default.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:         1 * time.Second,
		HeartbeatWindow:           15 * time.Second,
		HeartbeatOfflineWindow:    75 * time.Second,
		HeartbeatRemoveWindow:     3 * 24 * time.Hour,
		MinProtocolVersion:        "0",
		RefreshEntrySuppressBelow: "4.4.18",
		HeartbeatRate:             10,
		ServerVersion:             "fusexd",
	}
}
