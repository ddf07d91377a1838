package main

import (
	"github.com/aretw0/umlpreview/internal/cli"
	"github.com/aretw0/umlpreview/pkg/preview"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Watch a file and preview its current diagram",
	Long: `Keeps the selected diagram of a file rendered while the file changes.
The result is served on a web page that reloads itself, and summarized on the terminal.
While it runs, typing "line N" or "page N" moves the selection and "refresh" renders again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, _ := cmd.Flags().GetInt("line")
		page, _ := cmd.Flags().GetInt("page")
		format, _ := cmd.Flags().GetString("format")
		addr, _ := cmd.Flags().GetString("addr")
		quiet, _ := cmd.Flags().GetBool("quiet")

		opts := cli.PreviewOptions{
			Options: commonOptions(cmd),
			File:    args[0],
			Line:    line,
			Page:    page,
			Format:  format,
			Addr:    addr,
			Quiet:   quiet,
		}
		if !quiet {
			opts.Commands = cmd.InOrStdin()
		}
		return cli.RunPreview(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntP("line", "l", -1, "Zero-based line inside the diagram to preview (default: first diagram)")
	previewCmd.Flags().IntP("page", "p", 0, "Zero-based page to show")
	previewCmd.Flags().StringP("format", "f", preview.DefaultFormat, "Preview format")
	previewCmd.Flags().String("addr", "127.0.0.1:8765", "Address of the web preview")
	previewCmd.Flags().BoolP("quiet", "q", false, "Do not print status lines")
}
