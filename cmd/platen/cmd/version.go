package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/platen/internal/version"
	"github.com/spf13/cobra"
)

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "platen %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
