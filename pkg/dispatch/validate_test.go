package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/fusexerr"
	"github.com/fusexd/metacore/pkg/identity"
)

func TestValidateCAP_NoCapForAuthID_ENOENT(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	_, err := h.dispatch.validateCAP("missing", 1, 1, cap.ReadOK, time.Now())
	require.Error(t, err)
	assert.Equal(t, fusexerr.ENOENT, fusexerr.ErrnoOf(err))
}

func TestValidateCAP_InodeMismatch_EINVAL(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.caps.Store(&cap.Cap{AuthID: "a1", Inode: 5, ClientID: "c", ClientUUID: "u", Mode: cap.AllBits, Vtime: time.Now().Add(time.Hour)})

	_, err := h.dispatch.validateCAP("a1", 99, 100, cap.ReadOK, time.Now())
	require.Error(t, err)
	assert.Equal(t, fusexerr.EINVAL, fusexerr.ErrnoOf(err))
}

func TestValidateCAP_InsufficientMode_EPERM(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.caps.Store(&cap.Cap{AuthID: "a2", Inode: 5, ClientID: "c", ClientUUID: "u", Mode: cap.ReadOK, Vtime: time.Now().Add(time.Hour)})

	_, err := h.dispatch.validateCAP("a2", 5, 1, cap.WriteOK, time.Now())
	require.Error(t, err)
	assert.Equal(t, fusexerr.EPERM, fusexerr.ErrnoOf(err))
}

func TestValidateCAP_WithinGraceWindow_ETIMEDOUT(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapGraceWindow = 60 * time.Second
	h := newHarness(t, cfg)
	now := time.Now()
	h.caps.Store(&cap.Cap{AuthID: "a3", Inode: 5, ClientID: "c", ClientUUID: "u", Mode: cap.AllBits, Vtime: now.Add(30 * time.Second)})

	_, err := h.dispatch.validateCAP("a3", 5, 1, cap.ReadOK, now)
	require.Error(t, err)
	assert.Equal(t, fusexerr.ETIMEDOUT, fusexerr.ErrnoOf(err))
}

func TestValidateCAP_Valid_Succeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapGraceWindow = 60 * time.Second
	h := newHarness(t, cfg)
	now := time.Now()
	h.caps.Store(&cap.Cap{AuthID: "a4", Inode: 5, ClientID: "c", ClientUUID: "u", Mode: cap.AllBits, Vtime: now.Add(time.Hour)})

	c, err := h.dispatch.validateCAP("a4", 5, 1, cap.ReadOK, now)
	require.NoError(t, err)
	assert.Equal(t, "a4", c.AuthID)
}

func TestAuthorize_FallsBackToPermWhenCapMissing(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	root, err := h.store.Get(context.Background(), 1)
	require.NoError(t, err)
	root.Xattrs["sys.public"] = "1"
	require.NoError(t, h.store.Update(context.Background(), root))

	_, err = h.dispatch.authorize(context.Background(), "", 1, 1, cap.ExecuteOK, identity.VirtualIdentity{UID: 1000}, time.Now())
	assert.NoError(t, err)
}
