// Package nsstore defines the namespace-store collaborator the metadata
// request dispatcher reads and mutates (spec.md §1, §4.4): an external
// hierarchical store of directory entries, kept out of the core's own
// concurrency and capability machinery. This package states only the
// contract the dispatcher needs; the in-memory reference implementation it
// provides backs both the tests and the fusexmetad entrypoint.
package nsstore

import (
	"context"
	"time"
)

// EntryType distinguishes the inode kinds the dispatcher's SET sub-operation
// classification (spec.md §4.4) dispatches on.
type EntryType int

const (
	TypeDirectory EntryType = iota
	TypeRegular
	TypeSymlink
	TypeFifo
)

// Entry is one namespace entry: a directory, a regular file, a symlink, or
// a FIFO. Xattrs carries the sys.mask/sys.owner.auth/sys.acl/user.acl/
// share.acl/mdino/nlink-adjacent attributes spec.md §3's directory
// metadata and §4.4's hard-link bookkeeping reference by name.
type Entry struct {
	Inode       uint64
	ParentInode uint64
	Name        string
	Type        EntryType
	Mode        uint32
	UID         uint32
	GID         uint32
	Size        uint64
	Nlink       uint32
	Mtime       time.Time
	ParentMtime time.Time
	// Clock is the monotonically increasing version stamp the dispatcher
	// compares against a client's cached value for "not modified" replies
	// (spec.md §4.4 GET/LS).
	Clock  int64
	Target string // symlink target
	Xattrs map[string]string
}

// Clone returns a deep-enough copy safe for a caller to mutate without
// racing the store's own copy.
func (e *Entry) Clone() *Entry {
	cp := *e
	if e.Xattrs != nil {
		cp.Xattrs = make(map[string]string, len(e.Xattrs))
		for k, v := range e.Xattrs {
			cp.Xattrs[k] = v
		}
	}
	return &cp
}

// QuotaUsage reports the live accounting the CAP monitor's quota pass
// (spec.md §4.5) consumes to recompute available budgets.
type QuotaUsage struct {
	UsedInodes int64
	UsedBytes  int64
}

// Store is the namespace-store contract the dispatcher requires. All
// methods are safe for concurrent use.
type Store interface {
	// Get retrieves an entry by inode.
	Get(ctx context.Context, inode uint64) (*Entry, error)

	// GetChild resolves name under parentInode.
	GetChild(ctx context.Context, parentInode uint64, name string) (*Entry, error)

	// ListChildren returns up to limit children of parentInode starting
	// after cookie (0 selects the beginning), along with the cookie to
	// resume from. The dispatcher uses this to implement LS's bounded
	// batching (spec.md §4.4).
	ListChildren(ctx context.Context, parentInode uint64, cookie uint64, limit int) ([]*Entry, uint64, error)

	// ChildCount reports how many children parentInode currently has,
	// used by the MAX_CHILDREN hard-cap check.
	ChildCount(ctx context.Context, parentInode uint64) (int, error)

	// Create inserts a brand new entry under its ParentInode/Name. If
	// exclusive is true and an entry with that name already exists,
	// returns a fusexerr error carrying EEXIST.
	Create(ctx context.Context, entry *Entry, exclusive bool) error

	// Update overwrites the attributes of an existing entry (identified
	// by Inode); used for the UPDATE sub-operation.
	Update(ctx context.Context, entry *Entry) error

	// Move relocates inode from its current parent/name to
	// (newParent, newName), implementing RENAME/MOVE. If an entry
	// already exists at the destination, overwrite reports whether the
	// caller confirmed replacing it (the dispatcher resolves the
	// recycle/COW-delete/version-directory policy before calling this).
	Move(ctx context.Context, inode, newParent uint64, newName string, overwrite bool) error

	// Delete removes the (parentInode, name) entry. For a directory,
	// returns a fusexerr error carrying ENOTEMPTY if it has children.
	Delete(ctx context.Context, parentInode uint64, name string) error

	// IncNlink/DecNlink adjust a target inode's hard-link count, used
	// by the hard-link CREATE/DELETE paths (spec.md §4.4). DecNlink
	// returns the resulting count.
	IncNlink(ctx context.Context, inode uint64) (uint32, error)
	DecNlink(ctx context.Context, inode uint64) (uint32, error)

	// NextInode allocates a fresh inode number.
	NextInode(ctx context.Context) (uint64, error)

	// Quota reports live usage for a (uid, gid, quotaNodeInode) triple.
	Quota(ctx context.Context, uid, gid uint32, quotaNodeInode uint64) (QuotaUsage, error)
}
