package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-drift/grant/pkg/grant"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List the built-in permission catalog",
	Long: `List every named permission with the Android manifest permissions and the
iOS Info.plist usage-description key it maps to.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tANDROID\tIOS KEY")
		for _, p := range grant.All() {
			ios := p.IOSUsageKey()
			if ios == "" {
				ios = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p, strings.Join(p.AndroidPermissions(), ","), ios)
		}
		return w.Flush()
	},
}
