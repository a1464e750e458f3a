package dispatch

import (
	"context"

	"github.com/fusexd/metacore/pkg/wire"
)

// infiniteRange is the sentinel length the lock service expects for a
// zero-length (to-end-of-file) request, per spec.md §4.4's "A zero len is
// re-encoded as the infinite-range sentinel -1".
const infiniteRange = -1

func normalizeLockRange(lock *wire.FlockRecord) *wire.FlockRecord {
	if lock == nil {
		return nil
	}
	cp := *lock
	if cp.Len == 0 {
		cp.Len = infiniteRange
	}
	return &cp
}

func (d *Dispatcher) handleGetLk(ctx context.Context, req *wire.Request) *wire.Response {
	if d.locks == nil {
		return wire.ErrorResponse(errIO("GETLK", "no lock service configured"), req.ReqID)
	}
	result, err := d.locks.GetLock(ctx, req.Inode, req.ClientUUID, normalizeLockRange(req.Lock))
	if err != nil {
		return wire.ErrorResponse(errIO("GETLK", err.Error()), req.ReqID)
	}
	return &wire.Response{Type: wire.RespLock, Lock: result}
}

func (d *Dispatcher) handleSetLk(ctx context.Context, req *wire.Request, wait bool) *wire.Response {
	op := "SETLK"
	if wait {
		op = "SETLKW"
	}
	if d.locks == nil {
		return wire.ErrorResponse(errIO(op, "no lock service configured"), req.ReqID)
	}
	if err := d.locks.SetLock(ctx, req.Inode, req.ClientUUID, normalizeLockRange(req.Lock), wait); err != nil {
		return wire.ErrorResponse(errIO(op, err.Error()), req.ReqID)
	}
	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID}}
}

func (d *Dispatcher) handleBeginFlush(ctx context.Context, req *wire.Request) *wire.Response {
	if d.flush == nil {
		return wire.ErrorResponse(errIO("BEGINFLUSH", "no flush service configured"), req.ReqID)
	}
	if err := d.flush.BeginFlush(ctx, req.Inode, req.ClientUUID); err != nil {
		return wire.ErrorResponse(errIO("BEGINFLUSH", err.Error()), req.ReqID)
	}
	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID}}
}

func (d *Dispatcher) handleEndFlush(ctx context.Context, req *wire.Request) *wire.Response {
	if d.flush == nil {
		return wire.ErrorResponse(errIO("ENDFLUSH", "no flush service configured"), req.ReqID)
	}
	if err := d.flush.EndFlush(ctx, req.Inode, req.ClientUUID); err != nil {
		return wire.ErrorResponse(errIO("ENDFLUSH", err.Error()), req.ReqID)
	}
	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID}}
}
