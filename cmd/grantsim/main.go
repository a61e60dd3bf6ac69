// Command grantsim runs scripted permission sessions through the grant
// handlers without a device.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grantsim",
	Short: "Simulate runtime permission flows",
	Long: `grantsim replays a YAML scenario against a scripted platform delegate
and prints the dialog state after every step. Use it to check how a screen's
permission flow behaves for first denials, "don't ask again", Settings round
trips and process restarts.

Environment (also read from .env):
  GRANT_STORE        store backend: none, memory, file, sqlite, redis
  GRANT_STORE_PATH   file or sqlite path
  GRANT_REDIS_ADDR   redis address
  GRANT_LOG_LEVEL    debug, info, warn, error`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd, permissionsCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "grantsim: %v\n", err)
		os.Exit(1)
	}
}
