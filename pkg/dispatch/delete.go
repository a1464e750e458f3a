package dispatch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fusexd/metacore/pkg/broadcast"
	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/identity"
	"github.com/fusexd/metacore/pkg/nsstore"
	"github.com/fusexd/metacore/pkg/wire"
)

// backingInodeSentinel prefixes the name of a hard link's backing inode
// entry, per spec.md §4.4's "...eos.ino..." naming convention.
const backingInodeSentinel = "...eos.ino..."

// handleDelete implements spec.md §4.4's DELETE contract.
func (d *Dispatcher) handleDelete(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time) *wire.Response {
	ref, err := d.authorize(ctx, req.AuthID, req.Inode, req.ParentInode, cap.DeleteOK, vid, now)
	if err != nil {
		return wire.ErrorResponse(err, req.ReqID)
	}

	entry, err := d.store.Get(ctx, req.Inode)
	if err != nil {
		return wire.ErrorResponse(errNoEnt("DELETE", err.Error()), req.ReqID)
	}

	switch entry.Type {
	case nsstore.TypeDirectory:
		if derr := d.deleteDirectory(ctx, entry); derr != nil {
			return wire.ErrorResponse(derr, req.ReqID)
		}
	default:
		if mdino, ok := entry.Xattrs["mdino"]; ok {
			if derr := d.deleteHardLinkName(ctx, entry, mdino); derr != nil {
				return wire.ErrorResponse(derr, req.ReqID)
			}
		} else if derr := d.deleteFile(ctx, req, entry); derr != nil {
			return wire.ErrorResponse(derr, req.ReqID)
		}
	}

	d.broadcastDelete(ref, entry, req)
	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID}}
}

func (d *Dispatcher) deleteDirectory(ctx context.Context, entry *nsstore.Entry) error {
	count, err := d.store.ChildCount(ctx, entry.Inode)
	if err != nil {
		return errIO("DELETE", err.Error())
	}
	if count > 0 {
		return errNotEmpty("DELETE")
	}
	if err := d.store.Delete(ctx, entry.ParentInode, entry.Name); err != nil {
		return errIO("DELETE", err.Error())
	}
	return nil
}

// deleteFile implements the file-delete half of spec.md §4.4's DELETE:
// recycle if configured, unless this entry is itself a hard-link's
// backing inode (nlink > 1), else copy-on-write delete.
func (d *Dispatcher) deleteFile(ctx context.Context, req *wire.Request, entry *nsstore.Entry) error {
	if d.cfg.RecycleEnabled && entry.Nlink <= 1 && d.recycle != nil {
		if err := d.recycle.Recycle(ctx, entry.Inode, entry.ParentInode, entry.Name); err != nil {
			return errIO("DELETE", err.Error())
		}
		return nil
	}
	if err := d.store.Delete(ctx, entry.ParentInode, entry.Name); err != nil {
		return errIO("DELETE", err.Error())
	}
	return nil
}

// deleteHardLinkName implements spec.md §4.4's "For a hard-link name...
// decrement the target's nlink; if it reaches zero and the target's name
// starts with the sentinel "...eos.ino...", unlink the backing inode."
func (d *Dispatcher) deleteHardLinkName(ctx context.Context, entry *nsstore.Entry, mdino string) error {
	if err := d.store.Delete(ctx, entry.ParentInode, entry.Name); err != nil {
		return errIO("DELETE", err.Error())
	}

	targetInode, err := parseMdino(mdino)
	if err != nil {
		return errInval("DELETE", "malformed mdino xattr")
	}
	remaining, err := d.store.DecNlink(ctx, targetInode)
	if err != nil {
		return errIO("DELETE", err.Error())
	}
	if remaining == 0 {
		target, terr := d.store.Get(ctx, targetInode)
		if terr == nil && strings.HasPrefix(target.Name, backingInodeSentinel) {
			if derr := d.store.Delete(ctx, target.ParentInode, target.Name); derr != nil {
				return errIO("DELETE", derr.Error())
			}
		}
	}
	return nil
}

func parseMdino(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func (d *Dispatcher) broadcastDelete(ref *cap.Cap, entry *nsstore.Entry, req *wire.Request) {
	if d.broadcast == nil {
		return
	}
	desc := broadcast.Descriptor{
		Inode:            entry.Inode,
		ParentInode:      entry.ParentInode,
		Name:             entry.Name,
		OriginClientUUID: req.ClientUUID,
	}
	desc.Kind = broadcast.KindRelease
	d.broadcast.Broadcast(ref, desc)
	desc.Kind = broadcast.KindDelete
	d.broadcast.Broadcast(ref, desc)
	desc.Kind = broadcast.KindRefresh
	d.broadcast.Broadcast(ref, desc)
	d.caps.Delete(entry.Inode)
}
