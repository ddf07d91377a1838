package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/umlpreview"
	"github.com/aretw0/umlpreview/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "umlpreview",
	Short: "umlpreview renders PlantUML diagrams through a local engine or a rendering server",
	Long: `umlpreview renders the @startuml ... @enduml blocks of text files.

Diagrams reach the rendering engine as a local java process, a server spawned
and owned by umlpreview, or a remote rendering server, as configured per file
in umlpreview.yaml.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	sigCtx := cli.NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if err := rootCmd.ExecuteContext(sigCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Settings file (default \"umlpreview.yaml\")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error or off")
}

func commonOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	return cli.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		Version:    umlpreview.Version,
	}
}
