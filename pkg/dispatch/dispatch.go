// Package dispatch implements the metadata request dispatcher: the single
// entry point from the wire layer into the core (spec.md §4.4). It
// validates authorization, invokes the namespace store, updates the
// capability store, and emits broadcasts.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/fusexd/metacore/internal/logger"
	"github.com/fusexd/metacore/internal/telemetry"
	"github.com/fusexd/metacore/pkg/broadcast"
	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/identity"
	"github.com/fusexd/metacore/pkg/nsstore"
	"github.com/fusexd/metacore/pkg/wire"
)

// Dispatcher wires the namespace store, capability store, and broadcast
// engine together behind the ten operation codes spec.md §4.4 names.
type Dispatcher struct {
	store     nsstore.Store
	caps      *cap.Store
	broadcast *broadcast.Engine
	locks     LockService
	flush     FlushService
	recycle   RecycleBin
	cfg       Config
	metrics   Metrics
}

// New constructs a Dispatcher. locks, flush, recycle, and metrics may be
// nil; a nil LockService/FlushService call fails with EIO rather than
// silently succeeding, since forwarding to them is the operation's entire
// contract. A nil RecycleBin simply falls back to the COW-delete path.
func New(store nsstore.Store, caps *cap.Store, bc *broadcast.Engine, locks LockService, flush FlushService, recycle RecycleBin, cfg Config, metrics Metrics) *Dispatcher {
	return &Dispatcher{
		store:     store,
		caps:      caps,
		broadcast: bc,
		locks:     locks,
		flush:     flush,
		recycle:   recycle,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Dispatch routes req to its operation handler. vid is the already
// resolved virtual identity of the calling client (the core never
// authenticates; spec.md §1). now is the server's current wall clock,
// threaded explicitly so every time-dependent decision in a single
// dispatch call uses one consistent snapshot.
func (d *Dispatcher) Dispatch(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time) *wire.Response {
	if err := ctx.Err(); err != nil {
		return wire.ErrorResponse(errIO(req.Op.String(), err.Error()), req.ReqID)
	}

	ctx, span := telemetry.StartDispatchSpan(ctx, req.Op.String(), req.Inode, req.ReqID)
	defer span.End()

	incOp(d.metrics, req.Op.String())
	logger.Debug("dispatch: request", "op", req.Op.String(), "inode", req.Inode, "clientid", req.ClientID, "authid", req.AuthID)

	var resp *wire.Response
	switch req.Op {
	case wire.OpGet:
		resp = d.handleGet(ctx, req, vid, now)
	case wire.OpLs:
		resp = d.handleLs(ctx, req, vid, now, nil)
	case wire.OpSet:
		resp = d.handleSet(ctx, req, vid, now)
	case wire.OpDelete:
		resp = d.handleDelete(ctx, req, vid, now)
	case wire.OpGetCap:
		resp = d.handleGetCap(ctx, req, vid, now)
	case wire.OpGetLk:
		resp = d.handleGetLk(ctx, req)
	case wire.OpSetLk:
		resp = d.handleSetLk(ctx, req, false)
	case wire.OpSetLkw:
		resp = d.handleSetLk(ctx, req, true)
	case wire.OpBeginFlush:
		resp = d.handleBeginFlush(ctx, req)
	case wire.OpEndFlush:
		resp = d.handleEndFlush(ctx, req)
	default:
		resp = wire.ErrorResponse(errInval("DISPATCH", "unknown op"), req.ReqID)
	}

	if resp != nil && resp.Type == wire.RespAck && resp.Ack != nil && resp.Ack.Code == wire.AckPermanentFailure {
		telemetry.RecordError(ctx, fmt.Errorf("%s: %s", resp.Ack.ErrNo, resp.Ack.ErrMsg))
	}
	return resp
}

// Streamer receives LS's batched child listings as they fill, mirroring
// spec.md §4.4's "flush to the wire every ≈128 attached children". A nil
// Streamer simply accumulates the full listing into the returned
// Response's MDList.
type Streamer interface {
	FlushBatch(batch []wire.MD) error
}

// DispatchLS is Dispatch's LS entry point taking an explicit Streamer,
// for callers that want to flush batches directly to a wire connection
// rather than wait for the full listing.
func (d *Dispatcher) DispatchLS(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time, streamer Streamer) *wire.Response {
	return d.handleLs(ctx, req, vid, now, streamer)
}
