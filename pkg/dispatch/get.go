package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/identity"
	"github.com/fusexd/metacore/pkg/nsstore"
	"github.com/fusexd/metacore/pkg/wire"
)

// handleGet implements spec.md §4.4's GET contract for a single entry:
// the clock short-circuit, then a plain metadata reply.
func (d *Dispatcher) handleGet(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time) *wire.Response {
	if _, err := d.authorize(ctx, req.AuthID, req.Inode, req.ParentInode, cap.ReadOK, vid, now); err != nil {
		return wire.ErrorResponse(err, req.ReqID)
	}

	entry, err := d.store.Get(ctx, req.Inode)
	if err != nil {
		return wire.ErrorResponse(errNoEnt("GET", err.Error()), req.ReqID)
	}

	if req.ClientClock != 0 && entry.Clock == req.ClientClock {
		incNotModified(d.metrics)
		return wire.NotModified(req.ReqID)
	}

	return &wire.Response{Type: wire.RespMD, MD: entryToMD(entry, nil)}
}

// handleLs implements spec.md §4.4's LS contract: enumerate children in
// bounded batches, attach metadata (and, for up to ChildCapLimit
// dot-prefixed children, a child cap), and enforce MaxChildren unless the
// caller's app tag is exempt.
func (d *Dispatcher) handleLs(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time, streamer Streamer) *wire.Response {
	if _, err := d.authorize(ctx, req.AuthID, req.Inode, req.ParentInode, cap.ReadOK|cap.ExecuteOK, vid, now); err != nil {
		return wire.ErrorResponse(err, req.ReqID)
	}

	parent, err := d.store.Get(ctx, req.Inode)
	if err != nil {
		return wire.ErrorResponse(errNoEnt("LS", err.Error()), req.ReqID)
	}
	if req.ClientClock != 0 && parent.Clock == req.ClientClock {
		incNotModified(d.metrics)
		return wire.NotModified(req.ReqID)
	}

	count, err := d.store.ChildCount(ctx, req.Inode)
	if err != nil {
		return wire.ErrorResponse(errIO("LS", err.Error()), req.ReqID)
	}
	if count > d.cfg.MaxChildren && !d.cfg.isExemptAppTag(req.AppTag) {
		incMaxChildrenExceeded(d.metrics)
		return wire.ErrorResponse(errNameTooLong("LS", "listing exceeds MAX_CHILDREN"), req.ReqID)
	}

	var all []wire.MD
	childCapsIssued := 0
	var cookie uint64
	for {
		children, next, err := d.store.ListChildren(ctx, req.Inode, cookie, d.cfg.ListFlushBatch)
		if err != nil {
			return wire.ErrorResponse(errIO("LS", err.Error()), req.ReqID)
		}
		if len(children) == 0 {
			break
		}

		batch := make([]wire.MD, 0, len(children))
		for _, child := range children {
			var childCap *cap.Cap
			if strings.HasPrefix(child.Name, ".") && childCapsIssued < d.cfg.ChildCapLimit {
				childCap = d.issueChildCap(child, req, vid, now)
				childCapsIssued++
			}
			batch = append(batch, *entryToMD(child, childCap))
		}

		if streamer != nil {
			if err := streamer.FlushBatch(batch); err != nil {
				return wire.ErrorResponse(errIO("LS", err.Error()), req.ReqID)
			}
		} else {
			all = append(all, batch...)
		}

		if next == 0 {
			break
		}
		cookie = next
	}

	if streamer != nil {
		return &wire.Response{Type: wire.RespNone}
	}
	return &wire.Response{Type: wire.RespMDLS, MDList: all}
}

// issueChildCap derives and stores a fresh cap for a dot-prefixed child
// encountered during LS, owned by the client that issued the listing,
// matching the dot-file eager-cap behavior spec.md §4.4 names.
func (d *Dispatcher) issueChildCap(child *nsstore.Entry, req *wire.Request, vid identity.VirtualIdentity, now time.Time) *cap.Cap {
	dir := dirMetaFromEntry(child, d.cfg.EvalUserACL)
	mode := cap.DeriveMode(dir, vid)
	uid, gid := cap.DeriveOwner(dir, vid)
	c := &cap.Cap{
		AuthID:     cap.NewAuthID(),
		Inode:      child.Inode,
		ClientID:   req.ClientID,
		ClientUUID: req.ClientUUID,
		UID:        uid,
		GID:        gid,
		Mode:       mode,
		Vtime:      cap.DeriveExpiry(now, 0),
	}
	d.caps.Store(c)
	return c
}

func entryToMD(e *nsstore.Entry, c *cap.Cap) *wire.MD {
	md := &wire.MD{
		Inode:       e.Inode,
		ParentInode: e.ParentInode,
		Name:        e.Name,
		Mode:        e.Mode,
		UID:         e.UID,
		GID:         e.GID,
		Size:        e.Size,
		Nlink:       e.Nlink,
		Mtime:       e.Mtime,
		Target:      e.Target,
		Clock:       e.Clock,
	}
	if c != nil {
		md.Cap = &wire.CapBody{
			AuthID:      c.AuthID,
			Inode:       c.Inode,
			ClientID:    c.ClientID,
			ClientUUID:  c.ClientUUID,
			UID:         c.UID,
			GID:         c.GID,
			Mode:        uint32(c.Mode),
			Vtime:       c.Vtime.Unix(),
			MaxFileSize: c.MaxFileSize,
		}
	}
	return md
}
