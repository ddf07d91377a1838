package main

import (
	"github.com/aretw0/umlpreview/internal/cli"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [files...]",
	Short: "Export every diagram of the given files",
	Long: `Renders each diagram to <name>.<format>. Multi-page diagrams are written
as <name>-<page>.<format>.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outDir, _ := cmd.Flags().GetString("out")
		mapData, _ := cmd.Flags().GetBool("map")

		return cli.RunRender(cmd.Context(), cli.RenderOptions{
			Options: commonOptions(cmd),
			Files:   args,
			Format:  format,
			OutDir:  outDir,
			Map:     mapData,
		})
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("format", "f", "png", "Output format")
	renderCmd.Flags().StringP("out", "o", "", "Output directory (default: next to each file)")
	renderCmd.Flags().Bool("map", false, "Export image map data instead of images")
}
