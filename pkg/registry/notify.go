package registry

import "github.com/fusexd/metacore/pkg/cap"

// SendCAP forwards a cap update to its owning client.
func (r *Registry) SendCAP(clientID string, c *cap.Cap) error {
	if r.transport == nil {
		return nil
	}
	return r.transport.SendCAP(clientID, c)
}

// SendMD forwards a metadata update to clientID, unconditionally: the
// known-buggy-refresh suppression applies only to RefreshEntry.
func (r *Registry) SendMD(clientID string, update MDUpdate) error {
	if r.transport == nil {
		return nil
	}
	return r.transport.SendMD(clientID, update)
}

// ReleaseCAP forwards a cap release to clientUUID.
func (r *Registry) ReleaseCAP(clientUUID string, inode uint64) error {
	if r.transport == nil {
		return nil
	}
	return r.transport.ReleaseCAP(clientUUID, inode)
}

// DeleteEntry forwards a directory-entry deletion notice to clientUUID.
func (r *Registry) DeleteEntry(clientUUID string, parentInode uint64, name string) error {
	if r.transport == nil {
		return nil
	}
	return r.transport.DeleteEntry(clientUUID, parentInode, name)
}

// RefreshEntry forwards a refresh notice to clientUUID, unless the
// session the UUID view maps it to reports a protocol version below
// RefreshEntrySuppressBelow, the known-buggy-refresh version threshold
// (spec.md §9).
func (r *Registry) RefreshEntry(clientUUID string, inode uint64) error {
	if r.transport == nil {
		return nil
	}
	if r.shouldSuppressRefresh(clientUUID) {
		return nil
	}
	return r.transport.RefreshEntry(clientUUID, inode)
}

func (r *Registry) shouldSuppressRefresh(clientUUID string) bool {
	if r.cfg.RefreshEntrySuppressBelow == "" {
		return false
	}
	clientID, ok := r.ClientIDForUUID(clientUUID)
	if !ok {
		return false
	}
	sess := r.Get(clientID)
	if sess == nil || sess.Heartbeat.ProtocolVersion == "" {
		return false
	}
	return VersionLess(sess.Heartbeat.ProtocolVersion, r.cfg.RefreshEntrySuppressBelow)
}

// BroadcastConfig pushes the current Config to every tracked client,
// mirroring the first-mount CONFIG push for already-connected sessions
// (used after a live config reload).
func (r *Registry) BroadcastConfig() {
	if r.transport == nil {
		return
	}
	for _, uuid := range r.allUUIDs() {
		_ = r.transport.SendConfig(uuid, r.cfg)
	}
}

// BroadcastDropAllCaps sends DROPCAPS to every tracked client.
func (r *Registry) BroadcastDropAllCaps() {
	if r.transport == nil {
		return
	}
	for _, uuid := range r.allUUIDs() {
		_ = r.transport.DropAllCaps(uuid)
	}
}

func (r *Registry) allUUIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.uuidView))
	for uuid := range r.uuidView {
		out = append(out, uuid)
	}
	return out
}
