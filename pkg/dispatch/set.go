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

// hardLinkSentinel prefixes the Target field of a hard-link CREATE
// request; its suffix is the target inode in decimal (spec.md §4.4
// "Hard-link CREATE").
const hardLinkSentinel = "////hlnk"

// Low bits of the POSIX file-type field (S_IFMT), used only to classify
// the sub-operation SET dispatches to; never written back to a
// filesystem.
const (
	sIFMT  = 0o170000
	sIFDIR = 0o040000
	sIFLNK = 0o120000
	sIFIFO = 0o010000
)

// subOp classifies a SET request against the current state of the
// namespace, per spec.md §4.4: "classify the change as one of
// CREATE | UPDATE | RENAME | MOVE by comparing the request against the
// current entry".
type subOp int

const (
	subCreate subOp = iota
	subUpdate
	subRename
	subMove
)

// handleSet implements spec.md §4.4's SET contract.
func (d *Dispatcher) handleSet(ctx context.Context, req *wire.Request, vid identity.VirtualIdentity, now time.Time) *wire.Response {
	ref, err := d.authorize(ctx, req.AuthID, req.Inode, req.ParentInode, cap.WriteOK|cap.SetXattrOK, vid, now)
	if err != nil {
		return wire.ErrorResponse(err, req.ReqID)
	}

	if strings.HasPrefix(req.Target, hardLinkSentinel) {
		return d.handleHardLinkCreate(ctx, req, ref)
	}

	if req.Inode == 0 {
		return d.handleCreate(ctx, req, ref)
	}

	cur, err := d.store.Get(ctx, req.Inode)
	if err != nil {
		return wire.ErrorResponse(errNoEnt("SET", err.Error()), req.ReqID)
	}

	switch {
	case cur.ParentInode == req.ParentInode && cur.Name == req.Name:
		return d.handleUpdate(ctx, req, cur, ref)
	case cur.ParentInode == req.ParentInode:
		return d.handleRenameOrMove(ctx, req, cur, ref, subRename)
	default:
		return d.handleRenameOrMove(ctx, req, cur, ref, subMove)
	}
}

func isExclusive(req *wire.Request) bool {
	return req.Attrs["sys.excl"] == "1"
}

func entryTypeFromMode(mode uint32) nsstore.EntryType {
	switch mode & sIFMT {
	case sIFDIR:
		return nsstore.TypeDirectory
	case sIFLNK:
		return nsstore.TypeSymlink
	case sIFIFO:
		return nsstore.TypeFifo
	default:
		return nsstore.TypeRegular
	}
}

func (d *Dispatcher) handleHardLinkCreate(ctx context.Context, req *wire.Request, ref *cap.Cap) *wire.Response {
	suffix := strings.TrimPrefix(req.Target, hardLinkSentinel)
	targetInode, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		return wire.ErrorResponse(errInval("SET", "malformed hard-link sentinel"), req.ReqID)
	}

	if _, err := d.store.IncNlink(ctx, targetInode); err != nil {
		return wire.ErrorResponse(errNoEnt("SET", "hard-link target: "+err.Error()), req.ReqID)
	}

	newInode, err := d.store.NextInode(ctx)
	if err != nil {
		return wire.ErrorResponse(errIO("SET", err.Error()), req.ReqID)
	}
	entry := &nsstore.Entry{
		Inode:       newInode,
		ParentInode: req.ParentInode,
		Name:        req.Name,
		Type:        nsstore.TypeRegular,
		Mode:        req.Mode,
		UID:         req.UID,
		GID:         req.GID,
		Mtime:       time.Now(),
		Xattrs:      map[string]string{"mdino": strconv.FormatUint(targetInode, 10)},
	}
	if err := d.store.Create(ctx, entry, true); err != nil {
		_, _ = d.store.DecNlink(ctx, targetInode)
		return wire.ErrorResponse(errExist("SET", err.Error()), req.ReqID)
	}

	d.sendMD(ref, newInode, req.ParentInode, req)
	d.sendMD(ref, targetInode, req.ParentInode, req)

	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID, MDIno: newInode}}
}

func (d *Dispatcher) handleCreate(ctx context.Context, req *wire.Request, ref *cap.Cap) *wire.Response {
	existing, err := d.store.GetChild(ctx, req.ParentInode, req.Name)
	if err == nil && existing != nil {
		if isExclusive(req) {
			return wire.ErrorResponse(errExist("SET", "name exists and EXCL requested"), req.ReqID)
		}
		return d.handleUpdate(ctx, req, existing, ref)
	}

	newInode, err := d.store.NextInode(ctx)
	if err != nil {
		return wire.ErrorResponse(errIO("SET", err.Error()), req.ReqID)
	}
	entry := &nsstore.Entry{
		Inode:       newInode,
		ParentInode: req.ParentInode,
		Name:        req.Name,
		Type:        entryTypeFromMode(req.Mode),
		Mode:        req.Mode,
		UID:         req.UID,
		GID:         req.GID,
		Size:        req.Size,
		Mtime:       time.Now(),
		Target:      req.Target,
		Xattrs:      req.Attrs,
	}
	if err := d.store.Create(ctx, entry, true); err != nil {
		return wire.ErrorResponse(errExist("SET", err.Error()), req.ReqID)
	}

	d.touchParentMtime(ctx, req.ParentInode)
	d.sendMD(ref, newInode, req.ParentInode, req)

	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID, MDIno: newInode}}
}

func (d *Dispatcher) handleUpdate(ctx context.Context, req *wire.Request, cur *nsstore.Entry, ref *cap.Cap) *wire.Response {
	updated := cur.Clone()
	updated.Mode = req.Mode
	updated.UID = req.UID
	updated.GID = req.GID
	updated.Size = req.Size
	updated.Mtime = time.Now()
	if req.Target != "" {
		updated.Target = req.Target
	}
	for k, v := range req.Attrs {
		if updated.Xattrs == nil {
			updated.Xattrs = make(map[string]string)
		}
		updated.Xattrs[k] = v
	}

	if err := d.store.Update(ctx, updated); err != nil {
		return wire.ErrorResponse(errIO("SET", err.Error()), req.ReqID)
	}

	d.broadcastMutation(ref, cur.Inode, cur.ParentInode, req)
	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID, MDIno: cur.Inode}}
}

// handleRenameOrMove implements spec.md §4.4's "File MOVE / RENAME
// complications": if the destination already exists, resolve the
// versioning / recycle / copy-on-write-delete policy before relocating.
func (d *Dispatcher) handleRenameOrMove(ctx context.Context, req *wire.Request, cur *nsstore.Entry, ref *cap.Cap, op subOp) *wire.Response {
	dest, err := d.store.GetChild(ctx, req.ParentInode, req.Name)
	if err == nil && dest != nil && dest.Inode != cur.Inode {
		if err := d.resolveDestinationConflict(ctx, req, dest); err != nil {
			return wire.ErrorResponse(err, req.ReqID)
		}
	}

	if err := d.store.Move(ctx, cur.Inode, req.ParentInode, req.Name, true); err != nil {
		return wire.ErrorResponse(errIO("SET", err.Error()), req.ReqID)
	}
	d.touchParentMtime(ctx, cur.ParentInode)
	if op == subMove {
		d.touchParentMtime(ctx, req.ParentInode)
	}

	d.broadcastMutation(ref, cur.Inode, req.ParentInode, req)
	return &wire.Response{Type: wire.RespAck, Ack: &wire.Ack{Code: wire.AckOK, TransactionID: req.ReqID, MDIno: cur.Inode}}
}

// resolveDestinationConflict resolves one of the three policies spec.md
// §4.4 names for a rename/move whose destination already has an entry:
// versioning, recycle, or copy-on-write delete + unlink.
func (d *Dispatcher) resolveDestinationConflict(ctx context.Context, req *wire.Request, dest *nsstore.Entry) error {
	if req.Attrs["sys.versioning"] == "1" {
		versionDirName := ".sys.v#." + dest.Name
		if _, err := d.store.GetChild(ctx, req.ParentInode, versionDirName); err != nil {
			versionInode, nerr := d.store.NextInode(ctx)
			if nerr != nil {
				return errIO("SET", nerr.Error())
			}
			vdir := &nsstore.Entry{
				Inode:       versionInode,
				ParentInode: req.ParentInode,
				Name:        versionDirName,
				Type:        nsstore.TypeDirectory,
				Mode:        sIFDIR | 0o700,
				Mtime:       time.Now(),
			}
			if cerr := d.store.Create(ctx, vdir, true); cerr != nil {
				return errIO("SET", cerr.Error())
			}
			if merr := d.store.Move(ctx, dest.Inode, versionInode, dest.Name, false); merr != nil {
				return errIO("SET", merr.Error())
			}
			return nil
		}
	}

	if d.cfg.RecycleEnabled && req.Attrs["sys.recycle"] == "1" && dest.Nlink <= 1 {
		if d.recycle != nil {
			if rerr := d.recycle.Recycle(ctx, dest.Inode, req.ParentInode, dest.Name); rerr != nil {
				return errIO("SET", rerr.Error())
			}
			return nil
		}
	}

	// Copy-on-write delete + unlink: the destination entry is detached
	// so the move below can take its name.
	if err := d.store.Delete(ctx, req.ParentInode, dest.Name); err != nil {
		return errIO("SET", err.Error())
	}
	return nil
}

func (d *Dispatcher) touchParentMtime(ctx context.Context, parentInode uint64) {
	parent, err := d.store.Get(ctx, parentInode)
	if err != nil {
		return
	}
	parent.Mtime = time.Now()
	_ = d.store.Update(ctx, parent)
}

func (d *Dispatcher) sendMD(ref *cap.Cap, inode, parentInode uint64, req *wire.Request) {
	if d.broadcast == nil {
		return
	}
	d.broadcast.Broadcast(ref, broadcast.Descriptor{
		Inode:            inode,
		ParentInode:      parentInode,
		OriginClientUUID: req.ClientUUID,
		Kind:             broadcast.KindMetadata,
	})
}

// broadcastMutation implements spec.md §4.4's "broadcasts SendMD (with
// BroadcastRelease + BroadcastRefresh on UPDATE/RENAME/MOVE)".
func (d *Dispatcher) broadcastMutation(ref *cap.Cap, inode, parentInode uint64, req *wire.Request) {
	if d.broadcast == nil {
		return
	}
	desc := broadcast.Descriptor{
		Inode:            inode,
		ParentInode:      parentInode,
		OriginClientUUID: req.ClientUUID,
	}
	desc.Kind = broadcast.KindMetadata
	d.broadcast.Broadcast(ref, desc)
	desc.Kind = broadcast.KindRelease
	d.broadcast.Broadcast(ref, desc)
	desc.Kind = broadcast.KindRefresh
	d.broadcast.Broadcast(ref, desc)
}
