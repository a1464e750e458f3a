package cap

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fusexd/metacore/internal/logger"
	"github.com/google/uuid"
)

// expiryGraceMargin is added to a cap's vtime before it is considered due
// for expiry, giving a brief grace window for revalidation races (the
// dispatcher's own ValidateCAP grace window is a separate, larger one).
const expiryGraceMargin = 1 * time.Second

// expiryEntry is one element of the byExpiry ordered multimap. Entries may
// outlive the cap they reference (spec.md §3: "byExpiry may legitimately
// contain stale authids"); consumers treat a missing byAuthID lookup as
// already-expired.
type expiryEntry struct {
	vtime  time.Time
	authID string
}

type expiryHeap []expiryEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].vtime.Before(h[j].vtime) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryEntry)) }
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Store is the four-way-plus-UUID index of currently valid capabilities.
// All indices are mutated atomically under a single lock, per spec.md
// §3's cross-index invariants.
type Store struct {
	mu sync.RWMutex

	byAuthID      map[string]*Cap
	byInode       map[uint64]map[string]struct{}
	byClient      map[string]map[string]struct{}
	byClientInode map[string]map[uint64]map[string]struct{}
	clientUUIDs   map[string]map[string]struct{} // clientIdsByUUID
	expiry        expiryHeap

	opCounter atomic.Int64
	metrics   Metrics
}

// NewStore constructs an empty capability store. metrics may be nil.
func NewStore(metrics Metrics) *Store {
	return &Store{
		byAuthID:      make(map[string]*Cap),
		byInode:       make(map[uint64]map[string]struct{}),
		byClient:      make(map[string]map[string]struct{}),
		byClientInode: make(map[string]map[uint64]map[string]struct{}),
		clientUUIDs:   make(map[string]map[string]struct{}),
		metrics:       metrics,
	}
}

// NewAuthID generates a fresh random authid (spec.md §4.1 step 10).
func NewAuthID() string {
	return uuid.New().String()
}

// Store installs a fully-formed cap under its AuthID. Precondition: the
// cap carries a non-zero Inode and non-empty AuthID/ClientID/ClientUUID;
// violating it is a programmer error and panics, since the original
// treats it as an assertion, not a recoverable condition.
func (s *Store) Store(c *Cap) {
	if c.Inode == 0 || c.AuthID == "" || c.ClientID == "" || c.ClientUUID == "" {
		panic("cap: Store requires non-zero inode and non-empty authid/clientid/clientuuid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAuthID[c.AuthID]; ok && existing.Inode != c.Inode {
		s.removeLocked(existing)
	}

	s.byAuthID[c.AuthID] = c
	s.indexInodeLocked(c)
	s.indexClientLocked(c)
	s.indexClientInodeLocked(c)
	s.indexClientUUIDLocked(c)
	heap.Push(&s.expiry, expiryEntry{vtime: c.Vtime, authID: c.AuthID})

	s.opCounter.Add(1)
	incStore(s.metrics)
}

func (s *Store) indexInodeLocked(c *Cap) {
	set, ok := s.byInode[c.Inode]
	if !ok {
		set = make(map[string]struct{})
		s.byInode[c.Inode] = set
	}
	set[c.AuthID] = struct{}{}
}

func (s *Store) indexClientLocked(c *Cap) {
	set, ok := s.byClient[c.ClientID]
	if !ok {
		set = make(map[string]struct{})
		s.byClient[c.ClientID] = set
	}
	set[c.AuthID] = struct{}{}
}

func (s *Store) indexClientInodeLocked(c *Cap) {
	byInode, ok := s.byClientInode[c.ClientID]
	if !ok {
		byInode = make(map[uint64]map[string]struct{})
		s.byClientInode[c.ClientID] = byInode
	}
	set, ok := byInode[c.Inode]
	if !ok {
		set = make(map[string]struct{})
		byInode[c.Inode] = set
	}
	set[c.AuthID] = struct{}{}
}

func (s *Store) indexClientUUIDLocked(c *Cap) {
	set, ok := s.clientUUIDs[c.ClientUUID]
	if !ok {
		set = make(map[string]struct{})
		s.clientUUIDs[c.ClientUUID] = set
	}
	set[c.ClientID] = struct{}{}
}

// Imply issues a derived cap inheriting the clientid, clientuuid, uid, and
// gid of srcAuthID's cap, binding to inode with a new authid, and an
// expiry recomputed from leaseHint (0 selects the 300s default). Returns
// false if the source cap is absent or its inode is zero (spec.md §4.1
// "Imply").
func (s *Store) Imply(inode uint64, srcAuthID, newAuthID string, leaseHint time.Duration, now time.Time) (*Cap, bool) {
	s.mu.RLock()
	src, ok := s.byAuthID[srcAuthID]
	s.mu.RUnlock()
	if !ok || src.Inode == 0 {
		return nil, false
	}

	derived := src.clone()
	derived.AuthID = newAuthID
	derived.Inode = inode
	derived.Vtime = DeriveExpiry(now, leaseHint)

	s.Store(derived)
	incImply(s.metrics)
	return derived, true
}

// Get returns the shared cap reference for authid, or (if makeDefault is
// true and no cap exists) a freshly allocated zero-value sentinel cap
// meaning "absent". No side effects.
func (s *Store) Get(authID string, makeDefault bool) *Cap {
	s.mu.RLock()
	c, ok := s.byAuthID[authID]
	s.mu.RUnlock()
	if ok {
		return c
	}
	if makeDefault {
		return &Cap{}
	}
	return nil
}

// ClientIDs returns the set of ClientIDs registered under a ClientUUID
// (clientIdsByUUID in spec.md §3).
func (s *Store) ClientIDs(clientUUID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.clientUUIDs[clientUUID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// CapsForInode returns every currently-stored cap referencing inode, used
// by the broadcast engine's audience selection.
func (s *Store) CapsForInode(inode uint64) []*Cap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.byInode[inode]
	if !ok {
		return nil
	}
	out := make([]*Cap, 0, len(set))
	for authID := range set {
		if c, ok := s.byAuthID[authID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CapsForClientInode returns the caps a client holds on a given inode,
// used by Store's duplicate-suppression logic and by callers implementing
// "issue_only_one".
func (s *Store) CapsForClientInode(clientID string, inode uint64) []*Cap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byInode, ok := s.byClientInode[clientID]
	if !ok {
		return nil
	}
	set, ok := byInode[inode]
	if !ok {
		return nil
	}
	out := make([]*Cap, 0, len(set))
	for authID := range set {
		if c, ok := s.byAuthID[authID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CapsForClientUUID returns every cap held by any ClientID ever registered
// under clientUUID, used by Dropcaps (spec.md §4.2).
func (s *Store) CapsForClientUUID(clientUUID string) []*Cap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clients, ok := s.clientUUIDs[clientUUID]
	if !ok {
		return nil
	}
	var out []*Cap
	for clientID := range clients {
		set, ok := s.byClient[clientID]
		if !ok {
			continue
		}
		for authID := range set {
			if c, ok := s.byAuthID[authID]; ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// Remove removes c from all indices, pruning empty per-client-inode
// sub-maps. byExpiry is left alone (lazy expiry, per spec.md §4.1
// "Remove").
func (s *Store) Remove(c *Cap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

func (s *Store) removeLocked(c *Cap) {
	if c == nil {
		return
	}
	if stored, ok := s.byAuthID[c.AuthID]; !ok || stored != c {
		// Already removed, or a different cap now owns this authid
		// (e.g. a concurrent Store raced this Remove); nothing to do.
		return
	}
	delete(s.byAuthID, c.AuthID)

	if set, ok := s.byInode[c.Inode]; ok {
		delete(set, c.AuthID)
		if len(set) == 0 {
			delete(s.byInode, c.Inode)
		}
	}
	if set, ok := s.byClient[c.ClientID]; ok {
		delete(set, c.AuthID)
		if len(set) == 0 {
			delete(s.byClient, c.ClientID)
		}
	}
	if byInode, ok := s.byClientInode[c.ClientID]; ok {
		if set, ok := byInode[c.Inode]; ok {
			delete(set, c.AuthID)
			if len(set) == 0 {
				delete(byInode, c.Inode)
			}
		}
		if len(byInode) == 0 {
			delete(s.byClientInode, c.ClientID)
		}
	}
	incRemove(s.metrics)
}

// Delete removes every cap whose inode equals the given value, updating
// all indices (spec.md §4.1 "Delete"). Returns the number of caps removed.
func (s *Store) Delete(inode uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byInode[inode]
	if !ok {
		return 0
	}
	authIDs := make([]string, 0, len(set))
	for authID := range set {
		authIDs = append(authIDs, authID)
	}
	for _, authID := range authIDs {
		if c, ok := s.byAuthID[authID]; ok {
			s.removeLocked(c)
		}
	}
	incDelete(s.metrics)
	return len(authIDs)
}

// Expire reports whether the earliest byExpiry entry is due (its vtime
// plus the safety margin is in the past), without consuming it.
func (s *Store) Expire(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.expiry) == 0 {
		return false
	}
	return s.expiry[0].vtime.Add(expiryGraceMargin).Before(now)
}

// Pop unconditionally consumes the earliest byExpiry entry, removing the
// referenced cap if it is still present (it may already have been removed
// explicitly, in which case the entry is simply dropped as stale). Returns
// the removed cap, or nil if the entry was stale or the heap was empty.
func (s *Store) Pop(now time.Time) *Cap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.expiry) == 0 {
		return nil
	}
	e := heap.Pop(&s.expiry).(expiryEntry)
	incExpire(s.metrics)
	c, ok := s.byAuthID[e.authID]
	if !ok || c.Vtime != e.vtime {
		// Stale entry: either already removed, or superseded by a
		// newer Store() under the same authid with a different vtime.
		return nil
	}
	s.removeLocked(c)
	return c
}

// Len returns the number of currently-stored caps, used for reporting.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAuthID)
}

// All returns a snapshot copy of every currently-stored cap, for read-only
// status reporting (a debug/stats surface, not a spec.md operation).
func (s *Store) All() []Cap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Cap, 0, len(s.byAuthID))
	for _, c := range s.byAuthID {
		out = append(out, *c)
	}
	return out
}

// RunExpiryOnce drains every currently-due entry from byExpiry in one
// sweep, logging each removal. Called once per CAP-monitor tick (spec.md
// §4.5).
func (s *Store) RunExpiryOnce(now time.Time) int {
	n := 0
	for s.Expire(now) {
		if c := s.Pop(now); c != nil {
			logger.Debug("cap expired", "authid", c.AuthID, "inode", c.Inode, "clientid", c.ClientID)
			n++
		}
	}
	return n
}
