// Package registry implements the client registry: the heartbeat-driven
// lifecycle of client sessions, eviction, lock cleanup, per-client
// statistics, and the point-to-point notification helpers the CAP and
// dispatch paths call (spec.md §4.2).
package registry

import "time"

// State is a client session's position in the heartbeat state machine.
type State int

const (
	Online State = iota
	Volatile
	Offline
	Evicted
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Volatile:
		return "volatile"
	case Offline:
		return "offline"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// MountKind distinguishes automounted clients (which Evict's "autofs"
// sentinel targets) from statically-mounted ones (the "static" sentinel).
type MountKind int

const (
	KindStatic MountKind = iota
	KindAutofs
)

// Heartbeat is the message a client session periodically sends, carrying
// everything spec.md §6 lists under "Heartbeat message".
type Heartbeat struct {
	Version         string
	Host            string
	UUID            string
	PID             int
	StartTime       time.Time
	Clock           time.Time // wall-clock the client stamped on this heartbeat
	LeaseTime       time.Duration
	// Shutdown marks a client's last heartbeat before a clean unmount.
	// No last-gasp path exists beyond this: a dropped shutdown heartbeat
	// simply falls back to heartBeatRemoveWindow eviction.
	Shutdown        bool
	RevokeAuthIDs   []string
	LogPayload      string
	TracePayload    string
	ProtocolVersion string
	Kind            MountKind
}

// Stats is the per-client statistics block spec.md §3 describes.
type Stats struct {
	ResidentMemoryMB uint64
	VirtualMemoryMB  uint64
	OpenFiles        uint64
	Inodes           uint64
	IORateIn         uint64
	IORateOut        uint64
	XOFF             uint64
	NoBuffer         uint64
	Ops              uint64
	// BlockedMs is the blocked-in-mutex telemetry value the original
	// calls blockedms(); used for the lockup classification.
	BlockedMs uint64
}

// Session is the mutable per-ClientID record the registry tracks.
type Session struct {
	ClientID  string
	Heartbeat Heartbeat
	Stats     Stats
	State     State

	// ReceivedAt is the server's own wall clock when the last heartbeat
	// was ingested, used to drive the state-machine age windows.
	ReceivedAt time.Time

	// FirstSeen marks whether this session has observed a heartbeat
	// before; Dispatch treats the first Dispatch call for a ClientID as
	// "first mount".
	FirstSeen bool

	// LastOpsTime advances only when Stats.Ops changes across
	// successive reports (spec.md §4.2 "Idle classification").
	LastOpsTime time.Time
	lastOpsSeen uint64
}

// IdleBucket classifies a session's idleness for reporting, per spec.md
// §4.2 and the supplemented exact bucket strings from Clients.cc (SPEC_FULL
// §C.3).
func (s *Session) IdleBucket(now time.Time) string {
	if s.LastOpsTime.IsZero() {
		return "act"
	}
	idle := now.Sub(s.LastOpsTime)
	switch {
	case idle < 5*time.Minute:
		return "act"
	case idle < time.Hour:
		return ">5m"
	case idle < 24*time.Hour:
		return ">1h"
	case idle < 7*24*time.Hour:
		return ">1d"
	default:
		return ">1w"
	}
}

// LockupLabel reports the blocked-in-mutex classification Clients.cc's
// Info/Print paths emit: "locked" when BlockedMs exceeds 5 seconds, else
// "vacant".
func (s *Session) LockupLabel() string {
	if s.Stats.BlockedMs > 5*1000 {
		return "locked"
	}
	return "vacant"
}
