// Package acl evaluates the directory-attribute ACL attribute maps
// (sys.acl, user.acl, sys.eval.useracl / shareacl) consulted during
// capability-mode derivation.
//
// Entries are comma-separated rules of the form "qualifier:id:rule":
//
//	u:<uid>:rwx!d     user rule: read, write, execute/browse, deny-delete
//	g:<gid>:rx         group rule: read, execute/browse
//	z:<egroup>:rwx     e-group rule, matched against the identity's principal
//	m:rwx              mask, intersected with every matched entry's grant
//
// Rule characters: r (read), w (write), x (execute/browse),
// m (chmod), c (chown), u (update), a (set-xattr, "a" for attribute),
// wo (write-once, excludes update), !d (deny delete), !r/!w/!x (explicit
// deny, removes the bit even if granted elsewhere), i (immutable).
package acl

import (
	"strconv"
	"strings"

	"github.com/fusexd/metacore/pkg/identity"
)

// Bits mirror the capability-mode bitmask pkg/cap works with; kept as a
// distinct type here so this package has no import-time dependency on
// pkg/cap (pkg/cap depends on pkg/acl, not the reverse).
type Bits uint32

const (
	Read Bits = 1 << iota
	Write
	Update
	Delete
	Chmod
	Chown
	SetXattr
	SetUtime
	Execute
)

// Decision is the outcome of evaluating an attribute map against an
// identity: the bits to add, the bits to explicitly remove (deny always
// wins over grant), and whether the inode is declared immutable or
// write-once.
type Decision struct {
	Grant       Bits
	Deny        Bits
	Immutable   bool
	WriteOnce   bool
	DenyDelete  bool
	HasEntry    bool // true if any entry in the map applied to this identity
}

// IsMutable reports whether the evaluated ACL leaves the inode mutable
// (i.e. did not declare it immutable).
func (d Decision) IsMutable() bool { return !d.Immutable }

// CanRead, CanWrite, ... expose the grant/deny outcome the way Server.cc's
// call sites read off the original Acl object.
func (d Decision) CanRead() bool       { return d.Grant&Read != 0 && d.Deny&Read == 0 }
func (d Decision) CanNotRead() bool    { return d.Deny&Read != 0 }
func (d Decision) CanWrite() bool      { return d.Grant&Write != 0 && d.Deny&Write == 0 && !d.WriteOnce }
func (d Decision) CanWriteOnce() bool  { return d.WriteOnce }
func (d Decision) CanNotWrite() bool   { return d.Deny&Write != 0 }
func (d Decision) CanBrowse() bool     { return d.Grant&Execute != 0 && d.Deny&Execute == 0 }
func (d Decision) CanNotBrowse() bool  { return d.Deny&Execute != 0 }
func (d Decision) CanChmod() bool      { return d.Grant&Chmod != 0 && d.Deny&Chmod == 0 }
func (d Decision) CanNotChmod() bool   { return d.Deny&Chmod != 0 }
func (d Decision) CanChown() bool      { return d.Grant&Chown != 0 && d.Deny&Chown == 0 }
func (d Decision) CanUpdate() bool     { return d.Grant&Update != 0 && d.Deny&Update == 0 }
func (d Decision) CanNotDelete() bool  { return d.DenyDelete }

// Acl is a parsed, evaluable attribute map. It is cheap to build and
// evaluate repeatedly, matching the original's per-derivation
// Acl(sysacl, useracl, shareacl, vid, evaluseracl) construction.
type Acl struct {
	entries []entry
}

type entry struct {
	qualifier byte // 'u', 'g', 'z', or 'm'
	id        string
	grant     Bits
	deny      Bits
	denyDelete bool
	writeOnce bool
	immutable bool
}

// Parse builds an Acl from sys.acl, user.acl (only consulted when
// evalUserACL is set, mirroring sys.eval.useracl), and share.acl strings.
// Any of the three may be empty. Per spec.md's Open Question #1, the
// presence check governing whether ACL evaluation runs at all is a
// logical-OR of all three being non-empty, not just sysACL.
func Parse(sysACL, userACL, shareACL string, evalUserACL bool) *Acl {
	if sysACL == "" && userACL == "" && shareACL == "" {
		return &Acl{}
	}
	a := &Acl{}
	a.entries = append(a.entries, parseRules(sysACL)...)
	if evalUserACL {
		a.entries = append(a.entries, parseRules(userACL)...)
	}
	a.entries = append(a.entries, parseRules(shareACL)...)
	return a
}

// Present reports whether this Acl carries any rule at all.
func (a *Acl) Present() bool {
	return a != nil && len(a.entries) > 0
}

func parseRules(spec string) []entry {
	if spec == "" {
		return nil
	}
	var out []entry
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		parts := strings.SplitN(field, ":", 3)
		var e entry
		switch len(parts) {
		case 2:
			// mask entry: "m:rwx"
			e.qualifier = 'm'
			e.grant, e.deny, e.denyDelete, e.writeOnce, e.immutable = parseRuleChars(parts[1])
		case 3:
			e.qualifier = normalizeQualifier(parts[0])
			e.id = parts[1]
			e.grant, e.deny, e.denyDelete, e.writeOnce, e.immutable = parseRuleChars(parts[2])
		default:
			continue
		}
		out = append(out, e)
	}
	return out
}

func normalizeQualifier(q string) byte {
	q = strings.ToLower(strings.TrimSpace(q))
	if len(q) == 0 {
		return 0
	}
	return q[0]
}

func parseRuleChars(rule string) (grant, deny Bits, denyDelete, writeOnce, immutable bool) {
	i := 0
	for i < len(rule) {
		c := rule[i]
		if c == '!' && i+1 < len(rule) {
			switch rule[i+1] {
			case 'd':
				denyDelete = true
			case 'r':
				deny |= Read
			case 'w':
				deny |= Write
			case 'x':
				deny |= Execute
			case 'u':
				deny |= Update
			case 'm':
				deny |= Chmod
			case 'c':
				deny |= Chown
			}
			i += 2
			continue
		}
		if c == 'w' && i+1 < len(rule) && rule[i+1] == 'o' {
			writeOnce = true
			grant |= Write
			i += 2
			continue
		}
		switch c {
		case 'r':
			grant |= Read
		case 'w':
			grant |= Write
		case 'x':
			grant |= Execute
		case 'u':
			grant |= Update
		case 'm':
			grant |= Chmod
		case 'c':
			grant |= Chown
		case 'a':
			grant |= SetXattr
		case 'i':
			immutable = true
		}
		i++
	}
	return
}

// Evaluate matches every applicable entry (by uid, by gid/supplementary
// gid, by e-group principal) against vid and folds the results: grants
// accumulate, denies accumulate and always win over a grant for the same
// bit, write-once and immutable/deny-delete are sticky once any matching
// entry sets them.
func (a *Acl) Evaluate(vid identity.VirtualIdentity) Decision {
	var d Decision
	if a == nil {
		return d
	}
	for _, e := range a.entries {
		if !matches(e, vid) {
			continue
		}
		d.HasEntry = true
		d.Grant |= e.grant
		d.Deny |= e.deny
		if e.denyDelete {
			d.DenyDelete = true
		}
		if e.writeOnce {
			d.WriteOnce = true
		}
		if e.immutable {
			d.Immutable = true
		}
	}
	if mask := maskOf(a.entries); mask != 0 {
		d.Grant &= mask
	}
	return d
}

func maskOf(entries []entry) Bits {
	for _, e := range entries {
		if e.qualifier == 'm' {
			return e.grant
		}
	}
	return 0
}

func matches(e entry, vid identity.VirtualIdentity) bool {
	switch e.qualifier {
	case 'u':
		return e.id == uidString(vid.UID)
	case 'g':
		return matchesAnyGID(e.id, vid)
	case 'z':
		return e.id == vid.Principal
	case 'm':
		return false // mask entries are folded separately, never matched directly
	default:
		return false
	}
}

func matchesAnyGID(id string, vid identity.VirtualIdentity) bool {
	if id == uidString(vid.GID) {
		return true
	}
	for _, g := range vid.GIDs {
		if id == uidString(g) {
			return true
		}
	}
	return false
}

func uidString(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
