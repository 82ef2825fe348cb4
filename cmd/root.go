package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

// NewRootCommand builds the CLI entry point.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autocrawl",
		Short: "LLM-driven blog discovery and data collection",
		Long: `autocrawl drives an autonomous research loop: given keywords, it asks a
local reasoning model what to do next, executes the web searches, page
fetches, and field extractions it requests, and writes the collected blog
records to CSV or Excel.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}
