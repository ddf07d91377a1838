package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/umlpreview"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of umlpreview",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "umlpreview version %s\n", strings.TrimSpace(umlpreview.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
