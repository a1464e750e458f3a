// Command fusexmetad runs the FuseX metadata server core: the client
// registry, capability store, broadcast engine, and metadata request
// dispatcher, plus the heartbeat-monitor and CAP-monitor background loops
// and a read-only stats HTTP surface.
package main

import (
	"fmt"
	"os"

	"github.com/fusexd/metacore/cmd/fusexmetad/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
