package wire

// ServerMsgType distinguishes the server-initiated message shapes spec.md
// §6 lists.
type ServerMsgType uint8

const (
	MsgEvict ServerMsgType = iota
	MsgDropCaps
	MsgConfig
	MsgCap
	MsgMD
	MsgLease
	MsgDentry
	MsgRefresh
)

// EvictMsg asks a client to unmount, carrying a human-readable reason.
type EvictMsg struct {
	Reason string
}

// ConfigMsg is the first-mount configuration push.
type ConfigMsg struct {
	HBRate          int
	DentryMessaging bool
	WriteSizeFlush  bool
	AppName         string
	MDQuery         bool
	HideVersion     bool
	ServerVersion   string
}

// CapMsg pushes a single cap update to its owning client.
type CapMsg struct {
	Cap CapBody
}

// MDMsg pushes a metadata update.
type MDMsg struct {
	MD          MD
	ClientID    string
	MDIno       uint64
	MDPino      uint64
	Clock       int64
	ParentMtime *int64
}

// LeaseMsg notifies a client to release a cap (LEASE{type=RELEASECAP}).
type LeaseMsg struct {
	Type     string
	MDIno    uint64
	ClientID string
}

// DentryMsg notifies a client that a directory entry was removed.
type DentryMsg struct {
	Type     string
	Name     string
	MDIno    uint64
	ClientID string
}

// RefreshMsg asks a client to re-fetch an inode's metadata.
type RefreshMsg struct {
	MDIno uint64
}
