package cap

import (
	"io"
	"strconv"

	"github.com/fusexd/metacore/internal/cli/output"
)

// capTableRows adapts a cap slice to the teacher's TableRenderer
// interface, mirroring the original's own Print(option, filter) text dump
// of the cap table.
type capTableRows struct {
	caps []*Cap
}

func (r capTableRows) Headers() []string {
	return []string{"authid", "inode", "clientid", "clientuuid", "mode", "uid", "gid"}
}

func (r capTableRows) Rows() [][]string {
	rows := make([][]string, 0, len(r.caps))
	for _, c := range r.caps {
		rows = append(rows, []string{
			c.AuthID,
			strconv.FormatUint(c.Inode, 10),
			c.ClientID,
			c.ClientUUID,
			strconv.FormatUint(uint64(c.Mode), 8),
			strconv.FormatUint(uint64(c.UID), 10),
			strconv.FormatUint(uint64(c.GID), 10),
		})
	}
	return rows
}

// Print renders every currently-stored cap as a table, matching the shape
// of the original's text-mode cap dump.
func (s *Store) Print(w io.Writer) error {
	s.mu.RLock()
	caps := make([]*Cap, 0, len(s.byAuthID))
	for _, c := range s.byAuthID {
		caps = append(caps, c)
	}
	s.mu.RUnlock()

	return output.PrintTable(w, capTableRows{caps: caps})
}
