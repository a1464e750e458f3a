package registry

import (
	"sync"
	"time"

	"github.com/fusexd/metacore/internal/logger"
	"github.com/fusexd/metacore/pkg/cap"
)

// Registry tracks connected client sessions, keyed by ClientID, plus the
// ClientUUID -> ClientID "most-recent registration wins" view spec.md §3
// calls the Client UUID view. It drives eviction, version enforcement, and
// lock cleanup, and exposes the point-to-point notification helpers the
// CAP and dispatch paths call.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	uuidView map[string]string

	caps      *cap.Store
	transport Transport
	locks     LockDropper
	logs      LogCollector
	metrics   Metrics
	cfg       Config

	terminate chan struct{}
	once      sync.Once
}

// New constructs a Registry. caps must not be nil; transport, locks, logs,
// and metrics may be nil (a nil LockDropper/LogCollector simply skips that
// side effect, a nil Transport makes SendX helpers no-ops, matching the
// nil-safe metrics pattern used throughout this module).
func New(caps *cap.Store, transport Transport, locks LockDropper, logs LogCollector, metrics Metrics, cfg Config) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		uuidView:  make(map[string]string),
		caps:      caps,
		transport: transport,
		locks:     locks,
		logs:      logs,
		metrics:   metrics,
		cfg:       cfg,
		terminate: make(chan struct{}),
	}
}

// DispatchResult reports the side effects Dispatch decided to take, so the
// caller (which owns the actual send) can verify a first-mount Dispatch is
// always followed by a DROPCAPS emission, per spec.md §8's testable
// concurrency property.
type DispatchResult struct {
	Dropped       bool // heartbeat was too stale to process
	FirstMount    bool
	EvictReason   string // non-empty if this heartbeat triggered a version-mismatch eviction
	RevokedAuthID []string
}

// Dispatch ingests a heartbeat for clientID, implementing spec.md §4.2's
// seven-step heartbeat ingestion algorithm.
func (r *Registry) Dispatch(clientID string, hb Heartbeat, now time.Time) DispatchResult {
	// Step 1: drop stale heartbeats.
	if !hb.Clock.IsZero() && now.Sub(hb.Clock) > r.cfg.HeartbeatOfflineWindow {
		logger.Debug("registry: dropping stale heartbeat", "clientid", clientID, "age", now.Sub(hb.Clock))
		return DispatchResult{Dropped: true}
	}

	r.mu.Lock()
	sess, exists := r.sessions[clientID]
	firstMount := !exists
	if !exists {
		sess = &Session{ClientID: clientID}
		r.sessions[clientID] = sess
	}

	// Step 3: extract log/trace payloads, then clear them before they
	// are persisted on the session (avoid re-processing on the next
	// read of this session).
	logPayload, tracePayload := hb.LogPayload, hb.TracePayload
	hb.LogPayload, hb.TracePayload = "", ""

	sess.Heartbeat = hb
	sess.ReceivedAt = now
	shutdown := hb.Shutdown
	if sess.State == Evicted && !shutdown {
		sess.State = Online
	}

	// Step 4: refresh last_ops_time on the session's first observed
	// operation.
	if !sess.FirstSeen {
		sess.FirstSeen = true
		sess.LastOpsTime = now
	}

	// Step 5: insert into the UUID view (most-recent registration
	// wins).
	if hb.UUID != "" {
		r.uuidView[hb.UUID] = clientID
	}
	r.mu.Unlock()

	// Step 2: first-mount side effects happen outside the lock since
	// they call out to the transport.
	if firstMount {
		if r.transport != nil {
			_ = r.transport.DropAllCaps(hb.UUID)
			_ = r.transport.SendConfig(hb.UUID, r.cfg)
		}
		incMount(r.metrics)
	}

	// Step 3 continuation: hand the extracted payloads to the log
	// collector outside the lock.
	if r.logs != nil && (logPayload != "" || tracePayload != "") {
		r.logs.CollectClientLog(clientID, logPayload, tracePayload)
	}

	result := DispatchResult{FirstMount: firstMount}

	// Step 6: process revocations outside the registry lock.
	for _, authID := range hb.RevokeAuthIDs {
		if c := r.caps.Get(authID, false); c != nil {
			r.caps.Remove(c)
			result.RevokedAuthID = append(result.RevokedAuthID, authID)
		}
	}

	// Step 7: enforce the minimum protocol version.
	if r.cfg.MinProtocolVersion != "" && hb.ProtocolVersion != "" && VersionLess(hb.ProtocolVersion, r.cfg.MinProtocolVersion) {
		reason := "protocol version " + hb.ProtocolVersion + " below minimum " + r.cfg.MinProtocolVersion
		r.evictSession(clientID, hb.UUID, reason)
		result.EvictReason = reason
	}

	// Step 8: a heartbeat carrying the shutdown flag evicts its session
	// immediately, from any prior state (spec.md §4.2's "Any state ->
	// EVICTED" transition) — a clean unmount must not wait out
	// heartBeatRemoveWindow the way a lost heartbeat does.
	if shutdown && result.EvictReason == "" {
		reason := "client shutdown"
		r.evictSession(clientID, hb.UUID, reason)
		result.EvictReason = reason
	}

	incHeartbeat(r.metrics)
	return result
}

// RecordStats updates a session's statistics, advancing LastOpsTime only
// when the operations counter has changed since the previous report
// (spec.md §4.2 "Idle classification").
func (r *Registry) RecordStats(clientID string, stats Stats, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[clientID]
	if !ok {
		return
	}
	if stats.Ops != sess.lastOpsSeen {
		sess.lastOpsSeen = stats.Ops
		sess.LastOpsTime = now
	}
	sess.Stats = stats
}

// Get returns the session for clientID, or nil.
func (r *Registry) Get(clientID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[clientID]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}

// ListSessions returns a snapshot copy of every tracked session, for
// read-only status reporting (a debug/stats surface, not a spec.md
// operation).
func (r *Registry) ListSessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, *sess)
	}
	return out
}

// ClientIDForUUID resolves the UUID view's most-recently-registered
// ClientID for a ClientUUID.
func (r *Registry) ClientIDForUUID(uuid string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.uuidView[uuid]
	return id, ok
}

// Terminate signals the cooperative termination flag the background loops
// honor (spec.md §4.5).
func (r *Registry) Terminate() {
	r.once.Do(func() { close(r.terminate) })
}

// Done returns the cooperative termination channel.
func (r *Registry) Done() <-chan struct{} {
	return r.terminate
}

func (r *Registry) removeSession(clientID, uuid string) {
	r.mu.Lock()
	delete(r.sessions, clientID)
	if r.uuidView[uuid] == clientID {
		delete(r.uuidView, uuid)
	}
	r.mu.Unlock()
}
