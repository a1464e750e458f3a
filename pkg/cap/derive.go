package cap

import (
	"strconv"
	"time"

	"github.com/fusexd/metacore/pkg/acl"
	"github.com/fusexd/metacore/pkg/identity"
)

// Capability mode bits. These are capability-local, not POSIX mode bits,
// but reuse acl.Bits since ACL evaluation (pkg/acl) directly adds to or
// subtracts from them.
const (
	ReadOK     = acl.Read
	WriteOK    = acl.Write
	UpdateOK   = acl.Update
	DeleteOK   = acl.Delete
	ChmodOK    = acl.Chmod
	ChownOK    = acl.Chown
	SetXattrOK = acl.SetXattr
	SetUtimeOK = acl.SetUtime
	ExecuteOK  = acl.Execute

	// AllBits is granted unconditionally to uid 0 (spec.md §4.1 step 1).
	AllBits = ReadOK | WriteOK | UpdateOK | DeleteOK | ChmodOK | ChownOK | SetXattrOK | SetUtimeOK | ExecuteOK

	// mutateBits is the set a sudoer identity gains on top of its
	// owner/group/other-derived grants (step 2).
	mutateBits = ChownOK | ChmodOK | WriteOK | UpdateOK | DeleteOK | SetXattrOK
)

// POSIX mode bits used only to read a directory's permission bits out of
// DirMeta.Mode; the core never writes these back to a filesystem.
const (
	modeDir    = 0o040000
	modeUserR  = 0o0400
	modeUserW  = 0o0200
	modeUserX  = 0o0100
	modeGroupR = 0o0040
	modeGroupW = 0o0020
	modeGroupX = 0o0010
	modeOtherR = 0o0004
	modeOtherW = 0o0002
	modeOtherX = 0o0001

	// defaultSysMask is applied to group/other bits when a directory
	// carries no sys.mask attribute.
	defaultSysMask = 0o0777

	// defaultLease is used when the client announces no lease hint.
	defaultLease = 300 * time.Second
	// maxLease clamps any client-announced lease (step 9).
	maxLease = 7 * 24 * time.Hour
)

// DirMeta is the parent-directory metadata capability derivation reads:
// mode and owner, an optional sys.mask octal mask, an optional
// sys.owner.auth re-owner rule, and the three ACL attribute strings.
type DirMeta struct {
	Mode     uint32
	OwnerUID uint32
	OwnerGID uint32

	// SysMask is an octal string (e.g. "0077"); empty means no mask
	// attribute is set and defaultSysMask applies.
	SysMask string

	SysOwnerAuth string

	SysACL      string
	UserACL     string
	ShareACL    string
	EvalUserACL bool

	// PublicSubtree marks whether the path containing this directory is
	// in a publicly-accessible subtree (step 7).
	PublicSubtree bool
}

func (d DirMeta) sysMaskValue() uint32 {
	if d.SysMask == "" {
		return defaultSysMask
	}
	v, err := strconv.ParseUint(d.SysMask, 8, 32)
	if err != nil {
		return defaultSysMask
	}
	return uint32(v)
}

// DeriveMode implements spec.md §4.1 steps 1-7: the capability-mode
// derivation algorithm. Owner/group/other bits are applied first, then
// masked (group/other bits and owner execute; owner read/write are never
// masked), then the ACL decision is folded
// in, then the public-subtree collapse is applied last.
func DeriveMode(dir DirMeta, vid identity.VirtualIdentity) acl.Bits {
	if vid.IsRoot() {
		return AllBits
	}

	mode := acl.Bits(0)
	if dir.Mode&modeDir != 0 {
		// capability mode carries no direct analogue of S_IFDIR; the
		// directory-ness is implied by the caller's choice of inode,
		// kept here only as a comment anchor for the original's
		// `mode_t mode = dir.mode() & S_IFDIR` starting point.
	}

	if vid.Sudoer {
		mode |= mutateBits
	}

	mask := dir.sysMaskValue()

	// Owner bits: read/write never masked; execute is masked.
	if vid.UID == dir.OwnerUID {
		if dir.Mode&modeUserR != 0 {
			mode |= ReadOK | ChmodOK | SetUtimeOK
		}
		if dir.Mode&modeUserW != 0 {
			mode |= UpdateOK | WriteOK | DeleteOK | SetXattrOK | ChmodOK
		}
		if dir.Mode&modeUserX != 0 && mask&modeUserX != 0 {
			mode |= ExecuteOK
		}
	}

	// Group bits: masked. Unlike the owner-read branch above, group read
	// grants only ReadOK — chmod/set-utime are owner-only privileges in
	// the original (mgm/FuseServer/Server.cc:660,674).
	if vid.HasGID(dir.OwnerGID) {
		if dir.Mode&modeGroupR != 0 && mask&modeGroupR != 0 {
			mode |= ReadOK
		}
		if dir.Mode&modeGroupW != 0 && mask&modeGroupW != 0 {
			mode |= UpdateOK | WriteOK | DeleteOK | SetXattrOK | ChmodOK
		}
		if dir.Mode&modeGroupX != 0 && mask&modeGroupX != 0 {
			mode |= ExecuteOK
		}
	}

	// Other bits: masked. Same narrower grant as group read, above.
	if dir.Mode&modeOtherR != 0 && mask&modeOtherR != 0 {
		mode |= ReadOK
	}
	if dir.Mode&modeOtherW != 0 && mask&modeOtherW != 0 {
		mode |= UpdateOK | WriteOK | DeleteOK | SetXattrOK | ChmodOK
	}
	if dir.Mode&modeOtherX != 0 && mask&modeOtherX != 0 {
		mode |= ExecuteOK
	}

	// Step 6: per spec.md's Open Question #1, ACL evaluation runs
	// whenever ANY of the three ACL strings is non-empty (logical-OR,
	// not just sysACL).
	if dir.SysACL != "" || dir.UserACL != "" || dir.ShareACL != "" {
		a := acl.Parse(dir.SysACL, dir.UserACL, dir.ShareACL, dir.EvalUserACL)
		d := a.Evaluate(vid)
		if d.HasEntry {
			mode |= d.Grant
			mode &^= d.Deny
			if d.Immutable {
				mode &^= WriteOK | UpdateOK | DeleteOK | SetXattrOK | ChmodOK
			}
			if d.DenyDelete && vid.UID != dir.OwnerUID {
				mode &^= DeleteOK
			}
			if d.WriteOnce {
				mode &^= UpdateOK
			}
		}
	}

	// Step 7: collapse to browse-only outside a public subtree for
	// unprivileged identities.
	if !dir.PublicSubtree && !vid.Privileged() {
		mode &= ExecuteOK
	}

	return mode
}

// DeriveOwner implements spec.md §4.1 step 8: which uid/gid to record on
// the issued cap.
func DeriveOwner(dir DirMeta, vid identity.VirtualIdentity) (uid, gid uint32) {
	if identity.MatchesOwnerAuth(dir.SysOwnerAuth, vid) {
		return dir.OwnerUID, dir.OwnerGID
	}
	return vid.UID, vid.GID
}

// DeriveExpiry implements spec.md §4.1 step 9: now + lease, clamped to at
// most seven days, defaulting to 300s when the client announced none.
func DeriveExpiry(now time.Time, leaseHint time.Duration) time.Time {
	lease := leaseHint
	if lease <= 0 {
		lease = defaultLease
	}
	if lease > maxLease {
		lease = maxLease
	}
	return now.Add(lease)
}
