// Package commands implements the fusexmetad CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fusexmetad",
	Short: "fusexmetad - FuseX metadata server core",
	Long: `fusexmetad is the capability-based metadata server core behind a
FUSE-mounted eosxd-style client: client registry, CAP store, broadcast
engine, and metadata request dispatcher. It does not persist metadata,
schedule replicas, or move file data itself; it validates capabilities,
tracks client heartbeats, and fans updates out to peers.

Use "fusexmetad [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetConfigFile returns the --config flag value, empty if unset (meaning
// the default config path applies).
func GetConfigFile() string {
	return cfgFile
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fusexmetad/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
}
