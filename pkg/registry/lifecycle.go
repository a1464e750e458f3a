package registry

import (
	"strconv"
	"strings"
	"time"

	"github.com/fusexd/metacore/internal/logger"
)

// Tick advances every tracked session through the heartbeat state machine
// by one monitoring pass, per spec.md §4.2's ONLINE -> VOLATILE -> OFFLINE
// -> EVICTED transitions. Locks are dropped once on entering OFFLINE
// (later ticks that leave the session OFFLINE do not drop them again) and
// once more on entering EVICTED, which also releases the client's caps and
// erases the session from both the session map and the UUID view.
func (r *Registry) Tick(now time.Time) {
	type transition struct {
		clientID, uuid string
		from, to       State
	}

	r.mu.Lock()
	var transitions []transition
	for clientID, sess := range r.sessions {
		age := now.Sub(sess.ReceivedAt)
		from := sess.State
		to := from
		switch {
		case age > r.cfg.HeartbeatRemoveWindow:
			to = Evicted
		case age > r.cfg.HeartbeatOfflineWindow:
			to = Offline
		case age > r.cfg.HeartbeatWindow:
			to = Volatile
		default:
			to = Online
		}
		if to != from {
			sess.State = to
			transitions = append(transitions, transition{clientID, sess.Heartbeat.UUID, from, to})
		}
	}
	r.mu.Unlock()

	for _, t := range transitions {
		logger.Debug("registry: state transition", "clientid", t.clientID, "from", t.from, "to", t.to)
		switch t.to {
		case Offline:
			if r.locks != nil {
				_ = r.locks.DropLocksForUUID(t.uuid)
			}
			incOffline(r.metrics)
		case Evicted:
			if r.locks != nil {
				_ = r.locks.DropLocksForUUID(t.uuid)
			}
			r.Dropcaps(t.uuid)
			r.removeSession(t.clientID, t.uuid)
			incEvicted(r.metrics)
		}
	}
}

// evictSession performs the shared single-client eviction path: send the
// EVICT{reason} message, drop its byte-range locks, drop its caps, and
// erase it from the registry. Used both by Dispatch's version-mismatch
// enforcement and by the public Evict for a concrete UUID.
func (r *Registry) evictSession(clientID, uuid, reason string) {
	if r.transport != nil {
		_ = r.transport.Evict(uuid, reason)
	}
	if r.locks != nil {
		_ = r.locks.DropLocksForUUID(uuid)
	}
	r.Dropcaps(uuid)
	r.removeSession(clientID, uuid)
	incEvicted(r.metrics)
}

// Evict implements spec.md §4.2's Evict operation, including the special
// "static" and "autofs" sentinel UUIDs that select a bulk predicate over
// every tracked session instead of a single client: reason is parsed as
// "mem:<MB>" (resident memory threshold) or "idle:<seconds>" (idle
// duration threshold). An unknown concrete UUID still drops any stale
// locks registered for it and reports "no such client".
func (r *Registry) Evict(uuid, reason string) error {
	if uuid == "static" || uuid == "autofs" {
		kind := KindStatic
		if uuid == "autofs" {
			kind = KindAutofs
		}
		pred, err := parseEvictPredicate(reason)
		if err != nil {
			return err
		}
		now := time.Now()
		r.mu.RLock()
		var matches []struct{ clientID, uuid string }
		for clientID, sess := range r.sessions {
			if sess.Heartbeat.Kind != kind {
				continue
			}
			if pred(sess, now) {
				matches = append(matches, struct{ clientID, uuid string }{clientID, sess.Heartbeat.UUID})
			}
		}
		r.mu.RUnlock()
		for _, m := range matches {
			r.evictSession(m.clientID, m.uuid, reason)
		}
		return nil
	}

	clientID, ok := r.ClientIDForUUID(uuid)
	if !ok {
		// Stale locks may still exist for a UUID the registry no
		// longer tracks a session for; clean them up regardless.
		if r.locks != nil {
			_ = r.locks.DropLocksForUUID(uuid)
		}
		return fusexErrNoSuchClient(uuid)
	}
	r.evictSession(clientID, uuid, reason)
	return nil
}

func parseEvictPredicate(reason string) (func(sess *Session, now time.Time) bool, error) {
	parts := strings.SplitN(reason, ":", 2)
	if len(parts) != 2 {
		return nil, errInvalidEvictReason(reason)
	}
	threshold, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, errInvalidEvictReason(reason)
	}
	switch parts[0] {
	case "mem":
		return func(sess *Session, now time.Time) bool {
			return sess.Stats.ResidentMemoryMB > threshold
		}, nil
	case "idle":
		return func(sess *Session, now time.Time) bool {
			if sess.LastOpsTime.IsZero() {
				return false
			}
			return uint64(now.Sub(sess.LastOpsTime).Seconds()) > threshold
		}, nil
	default:
		return nil, errInvalidEvictReason(reason)
	}
}

// Dropcaps implements spec.md §4.2's Dropcaps: release every cap held by
// clientUUID, notifying each owning ClientID with a ReleaseCAP message.
func (r *Registry) Dropcaps(clientUUID string) {
	if r.caps == nil {
		return
	}
	caps := r.caps.CapsForClientUUID(clientUUID)
	for _, c := range caps {
		if r.transport != nil {
			_ = r.transport.ReleaseCAP(clientUUID, c.Inode)
		}
		r.caps.Remove(c)
	}
}
