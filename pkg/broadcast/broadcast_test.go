package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusexd/metacore/pkg/cap"
)

type recordingTransport struct {
	mu        sync.Mutex
	released  []string
	deleted   []string
	refreshed []string
	mdSent    []string
	failNext  bool
}

func (r *recordingTransport) ReleaseCAP(clientUUID string, inode uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, clientUUID)
	return nil
}

func (r *recordingTransport) DeleteEntry(clientUUID string, parentInode uint64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, clientUUID)
	return nil
}

func (r *recordingTransport) RefreshEntry(clientUUID string, inode uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, clientUUID)
	return nil
}

func (r *recordingTransport) SendMD(clientID, clientUUID string, inode, parentInode uint64, clock, parentMtime int64, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mdSent = append(r.mdSent, clientUUID)
	return nil
}

func storeWith(caps ...*cap.Cap) *cap.Store {
	s := cap.NewStore(nil)
	for _, c := range caps {
		s.Store(c)
	}
	return s
}

func testCap(authID string, inode uint64, clientID, clientUUID string) *cap.Cap {
	return &cap.Cap{
		AuthID:     authID,
		Inode:      inode,
		ClientID:   clientID,
		ClientUUID: clientUUID,
		Vtime:      time.Now().Add(time.Minute),
	}
}

func TestBroadcast_SkipsReferenceAndOrigin(t *testing.T) {
	ref := testCap("auth-ref", 1, "client-ref", "uuid-ref")
	other := testCap("auth-other", 1, "client-other", "uuid-other")
	origin := testCap("auth-origin", 1, "client-origin", "uuid-origin")
	store := storeWith(ref, other, origin)

	tr := &recordingTransport{}
	e := New(store, tr, Config{}, nil)

	e.Broadcast(ref, Descriptor{Inode: 1, Kind: KindRelease, OriginClientUUID: "uuid-origin"})

	assert.Equal(t, []string{"uuid-other"}, tr.released)
}

func TestBroadcast_RefreshUsesParentInodeAsAudienceSource(t *testing.T) {
	ref := testCap("auth-ref", 5, "client-ref", "uuid-ref")
	sibling := testCap("auth-sib", 5, "client-sib", "uuid-sib")
	store := storeWith(ref, sibling)

	tr := &recordingTransport{}
	e := New(store, tr, Config{}, nil)

	e.Broadcast(ref, Descriptor{Inode: 99, ParentInode: 5, Kind: KindRefresh})

	assert.Equal(t, []string{"uuid-sib"}, tr.refreshed)
}

func TestBroadcast_MetadataDedupesByClientUUID(t *testing.T) {
	ref := testCap("auth-ref", 1, "client-ref", "uuid-ref")
	c1 := testCap("auth-1", 1, "client-a", "uuid-shared")
	c2 := testCap("auth-2", 1, "client-b", "uuid-shared")
	store := storeWith(ref, c1, c2)

	tr := &recordingTransport{}
	e := New(store, tr, Config{}, nil)

	e.Broadcast(ref, Descriptor{Inode: 1, Kind: KindMetadata})

	assert.Len(t, tr.mdSent, 1)
}

func TestBroadcast_SuppressesAboveThresholdByPattern(t *testing.T) {
	ref := testCap("auth-ref", 1, "client-ref", "uuid-ref")
	a := testCap("auth-a", 1, "tenant-bulk-1", "uuid-a")
	b := testCap("auth-b", 1, "tenant-bulk-2", "uuid-b")
	c := testCap("auth-c", 1, "tenant-keep", "uuid-c")
	store := storeWith(ref, a, b, c)

	tr := &recordingTransport{}
	cfg := Config{AudienceThreshold: 1, SuppressPattern: "^tenant-bulk-"}
	e := New(store, tr, cfg, nil)

	e.Broadcast(ref, Descriptor{Inode: 1, Kind: KindRelease})

	assert.Equal(t, []string{"uuid-c"}, tr.released)
}

func TestBroadcast_InvalidPatternDisablesSuppression(t *testing.T) {
	ref := testCap("auth-ref", 1, "client-ref", "uuid-ref")
	a := testCap("auth-a", 1, "client-a", "uuid-a")
	b := testCap("auth-b", 1, "client-b", "uuid-b")
	store := storeWith(ref, a, b)

	tr := &recordingTransport{}
	cfg := Config{AudienceThreshold: 0, SuppressPattern: "("}
	e := New(store, tr, cfg, nil)

	e.Broadcast(ref, Descriptor{Inode: 1, Kind: KindRelease})

	require.Len(t, tr.released, 2)
}

func TestBroadcast_NoCandidatesIsNoop(t *testing.T) {
	store := cap.NewStore(nil)
	tr := &recordingTransport{}
	e := New(store, tr, Config{}, nil)

	e.Broadcast(nil, Descriptor{Inode: 42, Kind: KindRelease})

	assert.Empty(t, tr.released)
}
