// Package identity models the virtual client identity the dispatcher and
// capability engine reason about. The core never authenticates a client
// itself; it consumes an identity already resolved by the routing layer and
// uses it purely as input to capability-mode derivation and ACL evaluation.
package identity

import "strings"

// VirtualIdentity is the (uid, gid, sudoer, auth-scheme, principal) tuple
// spec.md §4.1 takes as capability-derivation input.
type VirtualIdentity struct {
	UID   uint32
	GID   uint32
	// GIDs lists supplementary group ids, used by ACL group-entry matching.
	GIDs []uint32

	// Sudoer marks a client identity with unrestricted sudo-equivalent
	// access; it is distinct from UID 0 (root) and grants the same
	// elevated mutate bits in capability derivation.
	Sudoer bool

	// Scheme is the authentication scheme that produced this identity
	// (e.g. "krb5", "unix", "gsi", "sss"). Used to match sys.owner.auth
	// entries of the form "scheme:principal".
	Scheme string

	// Principal is the scheme-specific identity string (a Kerberos
	// principal, a certificate DN, a plain username, ...).
	Principal string
}

// IsRoot reports whether this identity is UID 0, which short-circuits
// capability derivation to the full mode per spec.md §4.1 step 1.
func (v VirtualIdentity) IsRoot() bool {
	return v.UID == 0
}

// Privileged reports whether the identity should bypass the
// public-subtree-only collapse of spec.md §4.1 step 7: root or sudoer.
func (v VirtualIdentity) Privileged() bool {
	return v.IsRoot() || v.Sudoer
}

// HasGID reports whether gid is the identity's primary or a supplementary
// group.
func (v VirtualIdentity) HasGID(gid uint32) bool {
	if v.GID == gid {
		return true
	}
	for _, g := range v.GIDs {
		if g == gid {
			return true
		}
	}
	return false
}

// AuthKey returns the "scheme:principal" string used to match entries in a
// directory's sys.owner.auth attribute.
func (v VirtualIdentity) AuthKey() string {
	return v.Scheme + ":" + v.Principal
}

// MatchesOwnerAuth evaluates a directory's sys.owner.auth attribute value
// against this identity, per spec.md §4.1 step 8: "*" matches any identity;
// otherwise it is a comma-separated list of "scheme:principal" entries, and
// a match requires an exact entry present in that list.
func MatchesOwnerAuth(sysOwnerAuth string, vid VirtualIdentity) bool {
	sysOwnerAuth = strings.TrimSpace(sysOwnerAuth)
	if sysOwnerAuth == "" {
		return false
	}
	if sysOwnerAuth == "*" {
		return true
	}
	key := vid.AuthKey()
	for _, entry := range strings.Split(sysOwnerAuth, ",") {
		if strings.TrimSpace(entry) == key {
			return true
		}
	}
	return false
}
