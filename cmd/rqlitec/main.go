package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	cpuProfile string
	verbose    bool
	version    = "dev" // set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "rqlitec",
	Short: "Command-line client for a distributed SQLite cluster",
	Long: `rqlitec is a command-line client for a leader-based, SQLite-backed
database cluster exposed over HTTP. It dispatches queries the same way the
rqlitec Go library does: random host selection, bounded redirect-following,
and bounded retries, without participating in leader election itself.`,
	Version:          version,
	PersistentPreRunE: startProfileIfRequested,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopProfile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "cluster config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose dispatch logging")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(statusCmd)
}

// Commands are defined in separate files:
// - queryCmd, execCmd in query.go
// - backupCmd in backup.go
// - statusCmd in status.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
