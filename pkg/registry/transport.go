package registry

import "github.com/fusexd/metacore/pkg/cap"

// Transport is the wire-layer collaborator the registry pushes
// server-initiated messages through (spec.md §6 "Server-initiated
// messages"). The registry never blocks waiting for an acknowledgement;
// every call here is fire-and-forget from the registry's point of view,
// matching the original's best-effort zMQ reply semantics.
type Transport interface {
	// SendCAP wires a single cap update to its owning client.
	SendCAP(clientID string, c *cap.Cap) error

	// SendMD wires a metadata update to clientID. The registry calls it
	// unconditionally; the known-buggy-refresh suppression applies only
	// to RefreshEntry.
	SendMD(clientID string, update MDUpdate) error

	// ReleaseCAP, DeleteEntry, RefreshEntry are simple point-to-point
	// notifications keyed by UUID (spec.md §4.2).
	ReleaseCAP(clientUUID string, inode uint64) error
	DeleteEntry(clientUUID string, parentInode uint64, name string) error
	RefreshEntry(clientUUID string, inode uint64) error

	// Evict sends an EVICT{reason} message to the client.
	Evict(clientUUID string, reason string) error

	// DropAllCaps sends a DROPCAPS message.
	DropAllCaps(clientUUID string) error

	// SendConfig sends a CONFIG message (first-mount path).
	SendConfig(clientUUID string, cfg Config) error
}

// MDUpdate is the metadata-update payload forwarded to SendMD, matching
// spec.md §4.2's SendMD signature.
type MDUpdate struct {
	ClientUUID string
	Inode      uint64
	ParentInode uint64
	Clock      int64
	ParentMtime int64
	Body       []byte
}

// LockDropper is the byte-range lock service collaborator the registry
// calls into on VOLATILE->OFFLINE and OFFLINE->EVICTED transitions, and
// from Evict and Dispatch's evictions (spec.md §4.2's "drop all byte-range locks held by
// the client's UUID"). The lock service itself is out of scope; this is
// only the contract the registry requires of it.
type LockDropper interface {
	DropLocksForUUID(clientUUID string) error
}

// LogCollector receives the embedded log/trace payloads extracted from a
// heartbeat (spec.md §4.2 step 3), so they can be folded into the server's
// own log stream.
type LogCollector interface {
	CollectClientLog(clientID, log, trace string)
}
