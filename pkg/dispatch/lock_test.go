package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusexd/metacore/pkg/wire"
)

type fakeLockService struct {
	lastRange *wire.FlockRecord
	setCalls  int
	waitSeen  bool
}

func (f *fakeLockService) GetLock(ctx context.Context, inode uint64, clientUUID string, lock *wire.FlockRecord) (*wire.FlockRecord, error) {
	f.lastRange = lock
	return &wire.FlockRecord{Type: 2}, nil // F_UNLCK-equivalent sentinel
}

func (f *fakeLockService) SetLock(ctx context.Context, inode uint64, clientUUID string, lock *wire.FlockRecord, wait bool) error {
	f.setCalls++
	f.lastRange = lock
	f.waitSeen = wait
	return nil
}

type fakeFlushService struct {
	begins, ends int
}

func (f *fakeFlushService) BeginFlush(ctx context.Context, inode uint64, clientUUID string) error {
	f.begins++
	return nil
}

func (f *fakeFlushService) EndFlush(ctx context.Context, inode uint64, clientUUID string) error {
	f.ends++
	return nil
}

func TestHandleGetLk_NoServiceConfigured_ReturnsEIO(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	req := &wire.Request{Op: wire.OpGetLk, Inode: 1, ReqID: "l1"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckPermanentFailure, resp.Ack.Code)
}

func TestHandleGetLk_ForwardsToLockService_AndNormalizesZeroLen(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	locks := &fakeLockService{}
	h.dispatch = New(h.store, h.caps, h.bc, locks, nil, nil, DefaultConfig(), nil)

	req := &wire.Request{Op: wire.OpGetLk, Inode: 1, ClientUUID: "u1", Lock: &wire.FlockRecord{Start: 10, Len: 0}, ReqID: "l2"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespLock, resp.Type)
	require.NotNil(t, locks.lastRange)
	assert.Equal(t, int64(infiniteRange), locks.lastRange.Len)
}

func TestHandleSetLk_ForwardsWaitFlag(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	locks := &fakeLockService{}
	h.dispatch = New(h.store, h.caps, h.bc, locks, nil, nil, DefaultConfig(), nil)

	req := &wire.Request{Op: wire.OpSetLkw, Inode: 1, ClientUUID: "u1", Lock: &wire.FlockRecord{Start: 0, Len: 50}, ReqID: "l3"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)
	assert.Equal(t, 1, locks.setCalls)
	assert.True(t, locks.waitSeen)
	assert.Equal(t, int64(50), locks.lastRange.Len)
}

func TestHandleBeginEndFlush_ForwardsToFlushService(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	flush := &fakeFlushService{}
	h.dispatch = New(h.store, h.caps, h.bc, nil, flush, nil, DefaultConfig(), nil)

	begin := &wire.Request{Op: wire.OpBeginFlush, Inode: 1, ClientUUID: "u1", ReqID: "l4"}
	resp := h.dispatch.Dispatch(context.Background(), begin, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)

	end := &wire.Request{Op: wire.OpEndFlush, Inode: 1, ClientUUID: "u1", ReqID: "l5"}
	resp = h.dispatch.Dispatch(context.Background(), end, rootIdentity(), time.Now())
	require.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckOK, resp.Ack.Code)

	assert.Equal(t, 1, flush.begins)
	assert.Equal(t, 1, flush.ends)
}

func TestHandleGetCap_ClockSkewFails(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	now := time.Now()
	req := &wire.Request{Op: wire.OpGetCap, Inode: 1, ParentInode: 1, Ctime: now.Add(10 * time.Second), ReqID: "c1"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), now)
	assert.Equal(t, wire.RespAck, resp.Type)
	assert.Equal(t, wire.AckPermanentFailure, resp.Ack.Code)
}

func TestHandleGetCap_IssuesFreshCap(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	now := time.Now()
	req := &wire.Request{Op: wire.OpGetCap, Inode: 1, ParentInode: 1, ClientID: "c1", ClientUUID: "u1", ReqID: "c2"}
	resp := h.dispatch.Dispatch(context.Background(), req, rootIdentity(), now)
	require.Equal(t, wire.RespMD, resp.Type)
	require.NotNil(t, resp.MD.Cap)
	assert.NotEmpty(t, resp.MD.Cap.AuthID)
	assert.Equal(t, uint64(1), resp.MD.Cap.Inode)
}
