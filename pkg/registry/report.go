package registry

import (
	"io"
	"strconv"
	"time"

	"github.com/fusexd/metacore/internal/cli/output"
)

// ClientStats is the aggregate snapshot spec.md §9's supplemented
// per-client statistics surface reports: totals plus how many sessions
// are presently blocked in a lock for longer than the lockup threshold.
type ClientStats struct {
	Total    int
	Online   int
	Volatile int
	Offline  int
	Locked   int
}

// Aggregate computes a ClientStats snapshot across every tracked session.
func (r *Registry) Aggregate() ClientStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var st ClientStats
	st.Total = len(r.sessions)
	for _, sess := range r.sessions {
		switch sess.State {
		case Online:
			st.Online++
		case Volatile:
			st.Volatile++
		case Offline:
			st.Offline++
		}
		if sess.LockupLabel() == "locked" {
			st.Locked++
		}
	}
	return st
}

type sessionTableRows struct {
	sessions []*Session
	now      time.Time
}

func (t sessionTableRows) Headers() []string {
	return []string{"clientid", "uuid", "host", "state", "idle", "lock", "ops"}
}

func (t sessionTableRows) Rows() [][]string {
	rows := make([][]string, 0, len(t.sessions))
	for _, sess := range t.sessions {
		rows = append(rows, []string{
			sess.ClientID,
			sess.Heartbeat.UUID,
			sess.Heartbeat.Host,
			sess.State.String(),
			sess.IdleBucket(t.now),
			sess.LockupLabel(),
			strconv.FormatUint(sess.Stats.Ops, 10),
		})
	}
	return rows
}

// Print writes a tabular report of every tracked session, in the style of
// the original's client "Info"/"Print" commands.
func (r *Registry) Print(w io.Writer, now time.Time) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		cp := *sess
		sessions = append(sessions, &cp)
	}
	r.mu.RUnlock()
	return output.PrintTable(w, sessionTableRows{sessions: sessions, now: now})
}
