package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z"
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rover version",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rover version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
