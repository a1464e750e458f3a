package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/fusexerr"
	"github.com/fusexd/metacore/pkg/nsstore"
	"github.com/fusexd/metacore/pkg/wire"
)

func TestHandleSet_CreateNewEntry(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	req := &wire.Request{
		Op: wire.OpSet, ParentInode: 1, Name: "newfile", Mode: 0o100644,
		UID: 7, GID: 7, Size: 100, ReqID: "s1",
	}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())

	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)
	assert.NotZero(t, resp.Ack.MDIno)

	entry, err := h.store.GetChild(context.Background(), 1, "newfile")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), entry.Size)
}

func TestHandleSet_CreateExclusiveOnExistingNameFails(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	mustCreate(t, h.store, &nsstore.Entry{Inode: 50, ParentInode: 1, Name: "dup", Type: nsstore.TypeRegular})

	req := &wire.Request{
		Op: wire.OpSet, ParentInode: 1, Name: "dup", Mode: 0o100644,
		Attrs: map[string]string{"sys.excl": "1"}, ReqID: "s2",
	}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	assert.Equal(t, fusexerr.EEXIST, errnoOf(t, resp))
}

func TestHandleSet_UpdateExistingEntry(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	mustCreate(t, h.store, &nsstore.Entry{Inode: 51, ParentInode: 1, Name: "f", Type: nsstore.TypeRegular, Size: 1})

	req := &wire.Request{
		Op: wire.OpSet, Inode: 51, ParentInode: 1, Name: "f", Mode: 0o100644, Size: 999, ReqID: "s3",
	}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)

	entry, err := h.store.Get(context.Background(), 51)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), entry.Size)
}

func TestHandleSet_RenameWithinSameParent(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	mustCreate(t, h.store, &nsstore.Entry{Inode: 52, ParentInode: 1, Name: "old", Type: nsstore.TypeRegular})

	req := &wire.Request{Op: wire.OpSet, Inode: 52, ParentInode: 1, Name: "new", Mode: 0o100644, ReqID: "s4"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)

	_, err := h.store.GetChild(context.Background(), 1, "old")
	assert.Error(t, err)
	renamed, err := h.store.GetChild(context.Background(), 1, "new")
	require.NoError(t, err)
	assert.Equal(t, uint64(52), renamed.Inode)
}

func TestHandleSet_MoveToDifferentParent(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	mustCreate(t, h.store, &nsstore.Entry{Inode: 60, ParentInode: 1, Name: "dir", Type: nsstore.TypeDirectory, Mode: 0o040755})
	mustCreate(t, h.store, &nsstore.Entry{Inode: 61, ParentInode: 1, Name: "movee", Type: nsstore.TypeRegular})

	req := &wire.Request{Op: wire.OpSet, Inode: 61, ParentInode: 60, Name: "movee", Mode: 0o100644, ReqID: "s5"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)

	_, err := h.store.GetChild(context.Background(), 1, "movee")
	assert.Error(t, err)
	moved, err := h.store.GetChild(context.Background(), 60, "movee")
	require.NoError(t, err)
	assert.Equal(t, uint64(61), moved.Inode)
}

func TestHandleSet_MoveOverExistingDestination_CopyOnWriteDelete(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	mustCreate(t, h.store, &nsstore.Entry{Inode: 70, ParentInode: 1, Name: "src", Type: nsstore.TypeRegular})
	mustCreate(t, h.store, &nsstore.Entry{Inode: 71, ParentInode: 1, Name: "dst", Type: nsstore.TypeRegular, Nlink: 1})

	req := &wire.Request{Op: wire.OpSet, Inode: 70, ParentInode: 1, Name: "dst", Mode: 0o100644, ReqID: "s6"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)

	dst, err := h.store.GetChild(context.Background(), 1, "dst")
	require.NoError(t, err)
	assert.Equal(t, uint64(70), dst.Inode)
}

func TestHandleSet_HardLinkCreate_IncrementsNlinkAndBroadcastsTarget(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	mustCreate(t, h.store, &nsstore.Entry{Inode: 80, ParentInode: 1, Name: "target", Type: nsstore.TypeRegular, Nlink: 1})
	// A peer cap watching the target inode so the broadcast has an audience.
	h.caps.Store(&cap.Cap{AuthID: "peer-auth", Inode: 80, ClientID: "peer", ClientUUID: "peer-uuid", Vtime: time.Now().Add(time.Hour)})

	req := &wire.Request{
		Op: wire.OpSet, ParentInode: 1, Name: "hlink", Target: hardLinkSentinel + "80", ReqID: "s7",
	}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	require.Equal(t, wire.AckOK, resp.Ack.Code)
	assert.NotZero(t, resp.Ack.MDIno)

	target, err := h.store.Get(context.Background(), 80)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), target.Nlink)

	linkEntry, err := h.store.GetChild(context.Background(), 1, "hlink")
	require.NoError(t, err)
	assert.Equal(t, "80", linkEntry.Xattrs["mdino"])

	// Only the target inode's watcher gets notified; the new link inode has
	// no caps registered against it yet.
	assert.Equal(t, 1, h.transport.count())
}
