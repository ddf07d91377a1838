package main

import (
	"github.com/aretw0/umlpreview/internal/cli"
	"github.com/spf13/cobra"
)

var urlsCmd = &cobra.Command{
	Use:   "urls [files...]",
	Short: "Print rendering server links for every diagram",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		return cli.RunURLs(cmd.Context(), cli.URLOptions{
			Options: commonOptions(cmd),
			Files:   args,
			Format:  format,
		})
	},
}

func init() {
	rootCmd.AddCommand(urlsCmd)
	urlsCmd.Flags().StringP("format", "f", "svg", "Image format of the links")
}
