package dispatch

import (
	"context"
	"time"

	"github.com/fusexd/metacore/pkg/acl"
	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/identity"
	"github.com/fusexd/metacore/pkg/nsstore"
)

// validateCAP implements spec.md §4.4's ValidateCAP(md, required_mode, vid):
// four checks, each naming the precise errno a failure returns.
func (d *Dispatcher) validateCAP(authID string, inode, parentInode uint64, required acl.Bits, now time.Time) (*cap.Cap, error) {
	c := d.caps.Get(authID, false)
	if !c.Valid() {
		return nil, errNoEnt("VALIDATECAP", "no cap for authid")
	}
	if c.Inode != inode && c.Inode != parentInode {
		return nil, errInval("VALIDATECAP", "cap id matches neither inode nor parent inode")
	}
	if !c.HasMode(required) {
		return nil, errPerm("VALIDATECAP", "cap mode does not grant the required bits")
	}
	if !c.Vtime.After(now.Add(d.cfg.CapGraceWindow)) {
		return nil, errTimedOut("VALIDATECAP", "cap within expiry grace window")
	}
	return c, nil
}

// validatePERM implements spec.md §4.4's ValidatePERM fallback: re-read
// the parent container's ACL/mode and evaluate it fresh.
func (d *Dispatcher) validatePERM(ctx context.Context, parentInode uint64, vid identity.VirtualIdentity, required acl.Bits) error {
	parent, err := d.store.Get(ctx, parentInode)
	if err != nil {
		return errPerm("VALIDATEPERM", "parent lookup failed: "+err.Error())
	}
	dir := dirMetaFromEntry(parent, d.cfg.EvalUserACL)
	granted := cap.DeriveMode(dir, vid)
	if granted&required != required {
		return errPerm("VALIDATEPERM", "insufficient permission after ACL re-evaluation")
	}
	return nil
}

// authorize runs validateCAP and, on any of its four failure errnos,
// falls back to validatePERM, per spec.md §4.4's "On any of the four
// errnos above, the dispatcher falls back to ValidatePERM".
func (d *Dispatcher) authorize(ctx context.Context, authID string, inode, parentInode uint64, required acl.Bits, vid identity.VirtualIdentity, now time.Time) (*cap.Cap, error) {
	c, err := d.validateCAP(authID, inode, parentInode, required, now)
	if err == nil {
		return c, nil
	}
	incCapValidationFallback(d.metrics)
	if permErr := d.validatePERM(ctx, parentInode, vid, required); permErr != nil {
		incCapValidationFailure(d.metrics)
		return nil, permErr
	}
	return nil, nil
}

func dirMetaFromEntry(e *nsstore.Entry, defaultEvalUserACL bool) cap.DirMeta {
	dir := cap.DirMeta{
		Mode:         e.Mode,
		OwnerUID:     e.UID,
		OwnerGID:     e.GID,
		SysOwnerAuth: e.Xattrs["sys.owner.auth"],
		SysACL:       e.Xattrs["sys.acl"],
		UserACL:      e.Xattrs["user.acl"],
		ShareACL:     e.Xattrs["share.acl"],
		EvalUserACL:  defaultEvalUserACL,
	}
	if v, ok := e.Xattrs["sys.mask"]; ok {
		dir.SysMask = v
	}
	if v, ok := e.Xattrs["sys.eval.useracl"]; ok {
		dir.EvalUserACL = v == "1"
	}
	if v, ok := e.Xattrs["sys.public"]; ok {
		dir.PublicSubtree = v == "1"
	}
	return dir
}
