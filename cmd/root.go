// Package cmd implements the command-line interface for the event crawler.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/eventcrawl/cmd/crawl"
	"github.com/jonesrussell/eventcrawl/cmd/daemon"
	"github.com/jonesrussell/eventcrawl/cmd/targets"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "eventcrawl",
	Short: "An adaptive event listing crawler",
	Long: `eventcrawl discovers and refreshes dance event listings per city,
adapting its revisit cadence per URL, per capability, and per run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment overrides are visible to viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String(
		"config",
		"",
		"config file (default is ./config.yaml, ./config/config.yaml, or /etc/eventcrawl/config.yaml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("eventcrawl version %s\n", Version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(daemon.Command())
	rootCmd.AddCommand(targets.Command())
}
