package cap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCap(authID string, inode uint64, clientID, clientUUID string, vtime time.Time) *Cap {
	return &Cap{
		AuthID:     authID,
		Inode:      inode,
		ClientID:   clientID,
		ClientUUID: clientUUID,
		UID:        1000,
		GID:        1000,
		Mode:       ReadOK | ExecuteOK,
		Vtime:      vtime,
		Quota:      Unlimited,
	}
}

func TestStore_StoreGetRoundTrip(t *testing.T) {
	s := NewStore(nil)
	c := newTestCap("a1", 0x100, "c1", "u1", time.Now().Add(time.Minute))
	s.Store(c)

	got := s.Get("a1", false)
	require.NotNil(t, got)
	assert.Equal(t, c, got)
}

func TestStore_StoreThenRemoveThenGetNil(t *testing.T) {
	s := NewStore(nil)
	c := newTestCap("a1", 0x100, "c1", "u1", time.Now().Add(time.Minute))
	s.Store(c)
	s.Remove(c)
	assert.Nil(t, s.Get("a1", false))
}

func TestStore_GetMakeDefaultReturnsSentinel(t *testing.T) {
	s := NewStore(nil)
	got := s.Get("missing", true)
	require.NotNil(t, got)
	assert.False(t, got.Valid())
}

func TestStore_StoreSameAuthIDDifferentInodeRemovesOld(t *testing.T) {
	s := NewStore(nil)
	now := time.Now().Add(time.Minute)
	c1 := newTestCap("a1", 0x100, "c1", "u1", now)
	s.Store(c1)

	c2 := newTestCap("a1", 0x200, "c1", "u1", now)
	s.Store(c2)

	assert.Empty(t, s.CapsForInode(0x100))
	assert.Len(t, s.CapsForInode(0x200), 1)
	assert.Equal(t, c2, s.Get("a1", false))
}

func TestStore_Imply(t *testing.T) {
	s := NewStore(nil)
	now := time.Now()
	src := newTestCap("src", 0x100, "c1", "u1", now.Add(time.Minute))
	s.Store(src)

	derived, ok := s.Imply(0x200, "src", "new", 0, now)
	require.True(t, ok)
	assert.Equal(t, uint64(0x200), derived.Inode)
	assert.Equal(t, src.ClientID, derived.ClientID)
	assert.Equal(t, src.ClientUUID, derived.ClientUUID)

	got := s.Get("new", false)
	require.NotNil(t, got)
	assert.Equal(t, uint64(0x200), got.Inode)
	assert.Equal(t, src.ClientID, got.ClientID)
}

func TestStore_ImplyFailsOnMissingSource(t *testing.T) {
	s := NewStore(nil)
	_, ok := s.Imply(0x200, "missing", "new", 0, time.Now())
	assert.False(t, ok)
}

func TestStore_ImplyFailsOnZeroInodeSource(t *testing.T) {
	s := NewStore(nil)
	src := &Cap{AuthID: "src", Inode: 0, ClientID: "c1", ClientUUID: "u1"}
	s.mu.Lock()
	s.byAuthID["src"] = src
	s.mu.Unlock()

	_, ok := s.Imply(0x200, "src", "new", 0, time.Now())
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(nil)
	now := time.Now().Add(time.Minute)
	s.Store(newTestCap("a1", 0x100, "c1", "u1", now))
	s.Store(newTestCap("a2", 0x100, "c2", "u2", now))
	s.Store(newTestCap("a3", 0x200, "c1", "u1", now))

	n := s.Delete(0x100)
	assert.Equal(t, 2, n)
	assert.Nil(t, s.Get("a1", false))
	assert.Nil(t, s.Get("a2", false))
	assert.NotNil(t, s.Get("a3", false))
	assert.Empty(t, s.CapsForInode(0x100))
}

func TestStore_ExpireAndPop(t *testing.T) {
	s := NewStore(nil)
	base := time.Now()
	c := newTestCap("a1", 0x100, "c1", "u1", base.Add(5*time.Second))
	s.Store(c)

	assert.False(t, s.Expire(base))
	later := base.Add(66 * time.Second)
	assert.True(t, s.Expire(later))

	popped := s.Pop(later)
	require.NotNil(t, popped)
	assert.Equal(t, "a1", popped.AuthID)
	assert.Nil(t, s.Get("a1", false))
}

func TestStore_PopStaleEntryAfterExplicitRemove(t *testing.T) {
	s := NewStore(nil)
	base := time.Now()
	c := newTestCap("a1", 0x100, "c1", "u1", base.Add(time.Second))
	s.Store(c)
	s.Remove(c)

	got := s.Pop(base.Add(time.Minute))
	assert.Nil(t, got, "popping a stale expiry entry for an already-removed cap returns nil")
}

func TestStore_ClientIDsByUUID(t *testing.T) {
	s := NewStore(nil)
	now := time.Now().Add(time.Minute)
	s.Store(newTestCap("a1", 0x100, "c1", "u1", now))
	s.Store(newTestCap("a2", 0x200, "c1-b", "u1", now))

	ids := s.ClientIDs("u1")
	assert.ElementsMatch(t, []string{"c1", "c1-b"}, ids)
}

func TestStore_PruneEmptySubmapsOnRemove(t *testing.T) {
	s := NewStore(nil)
	now := time.Now().Add(time.Minute)
	c := newTestCap("a1", 0x100, "c1", "u1", now)
	s.Store(c)
	s.Remove(c)

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, hasInode := s.byInode[0x100]
	_, hasClient := s.byClient["c1"]
	_, hasClientInode := s.byClientInode["c1"]
	assert.False(t, hasInode)
	assert.False(t, hasClient)
	assert.False(t, hasClientInode)
}

func TestNewAuthID_Unique(t *testing.T) {
	a := NewAuthID()
	b := NewAuthID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestStore_All_ReturnsSnapshotOfEveryCap(t *testing.T) {
	s := NewStore(nil)
	assert.Empty(t, s.All())

	c1 := newTestCap("a1", 0x100, "c1", "u1", time.Now().Add(time.Minute))
	c2 := newTestCap("a2", 0x200, "c2", "u2", time.Now().Add(time.Minute))
	s.Store(c1)
	s.Store(c2)

	all := s.All()
	require.Len(t, all, 2)

	// Mutating the snapshot must not affect the store's own state.
	for i := range all {
		all[i].AuthID = "mutated"
	}
	assert.Equal(t, "a1", s.Get("a1", false).AuthID)
	assert.Equal(t, "a2", s.Get("a2", false).AuthID)
}
