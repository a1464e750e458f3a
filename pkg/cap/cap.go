// Package cap implements the capability store: the four-way index of
// currently-valid capabilities, the mode-derivation algorithm, and
// issuance/expiry/revocation operations (spec.md §4.1).
package cap

import (
	"time"

	"github.com/fusexd/metacore/pkg/acl"
	"github.com/fusexd/metacore/pkg/fusexerr"
)

// Quota is the budget snapshot recorded on a cap (spec.md §4.1 step 11).
// Unlimited is represented by the sentinel -1, matching the "effectively
// unlimited" wording rather than a magic large number.
type Quota struct {
	InodeBudget    int64
	VolumeBudget   int64
	QuotaNodeInode uint64
}

// Unlimited is the sentinel quota used when the enclosing quota scope is
// disabled.
var Unlimited = Quota{InodeBudget: -1, VolumeBudget: -1}

// Cap is an immutable issued capability fact. Once stored under AuthID its
// Inode does not change; a re-presented AuthID with a different Inode
// causes the old cap to be removed before the new one installs (Store's
// precondition in spec.md §4.1).
type Cap struct {
	AuthID     string
	Inode      uint64
	ClientID   string
	ClientUUID string
	UID        uint32
	GID        uint32
	Mode       acl.Bits
	Vtime      time.Time
	Quota      Quota
	MaxFileSize uint64
	Errc       fusexerr.Errno
}

// Valid reports the per-cap invariant of spec.md §8: a non-zero vtime,
// non-zero inode, and non-empty authid.
func (c *Cap) Valid() bool {
	return c != nil && !c.Vtime.IsZero() && c.Inode != 0 && c.AuthID != ""
}

// Expired reports whether the cap's lease has elapsed as of now.
func (c *Cap) Expired(now time.Time) bool {
	return c == nil || !c.Vtime.After(now)
}

// HasMode reports whether the cap grants every bit in required.
func (c *Cap) HasMode(required acl.Bits) bool {
	return c != nil && c.Mode&required == required
}

// clone returns a shallow copy; Cap is treated as immutable once stored, so
// callers that need to adjust fields (e.g. Imply) always start from a
// clone rather than mutating a stored cap in place.
func (c *Cap) clone() *Cap {
	cp := *c
	return &cp
}
