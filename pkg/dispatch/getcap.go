package dispatch

import (
	"context"
	"time"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/identity"
	"github.com/fusexd/metacore/pkg/wire"
)

// handleGetCap implements spec.md §4.4's GETCAP contract: a fresh cap is
// issued without any guarantee the caller's cached metadata has been
// resynchronized, and an out-of-sync client clock fails fast.
func (d *Dispatcher) handleGetCap(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time) *wire.Response {
	if skew := req.Ctime.Sub(now); skew > d.cfg.ClockSkewTolerance {
		return wire.ErrorResponse(errL2NSync("GETCAP", "client clock ahead of server by "+skew.String()), req.ReqID)
	}

	parent, err := d.store.Get(ctx, req.ParentInode)
	if err != nil {
		return wire.ErrorResponse(errNoEnt("GETCAP", err.Error()), req.ReqID)
	}
	entry, err := d.store.Get(ctx, req.Inode)
	if err != nil {
		return wire.ErrorResponse(errNoEnt("GETCAP", err.Error()), req.ReqID)
	}

	dir := dirMetaFromEntry(parent, d.cfg.EvalUserACL)
	mode := cap.DeriveMode(dir, vid)
	uid, gid := cap.DeriveOwner(dir, vid)

	c := &cap.Cap{
		AuthID:     cap.NewAuthID(),
		Inode:      req.Inode,
		ClientID:   req.ClientID,
		ClientUUID: req.ClientUUID,
		UID:        uid,
		GID:        gid,
		Mode:       mode,
		Vtime:      cap.DeriveExpiry(now, 0),
	}
	d.caps.Store(c)

	md := entryToMD(entry, c)
	return &wire.Response{Type: wire.RespMD, MD: md}
}
