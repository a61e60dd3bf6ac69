package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/go-drift/grant/cmd/grantsim/internal/config"
)

// Version information set at build time.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		v := Version
		if !semver.IsValid(v) {
			v += " (non-semver)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "grantsim %s (built %s, scenario schema %s)\n", v, BuildTime, config.SupportedSchema)
	},
}
