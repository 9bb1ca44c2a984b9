package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/darkproduction721/AI-Agent-Studio/internal/api"
)

var (
	configPath   string
	outputFormat string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentstudio",
		Short: "Agent Studio - chat with a catalog of AI agent personas",
		Long: `agentstudio serves a catalog of AI agent personas over HTTP and routes
chat turns to an OpenAI-compatible completion backend.

The catalog and model commands work offline against the configured agents
directory and backend, without a running server.`,
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("AGENTSTUDIO_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", defaultOutput(), "Output format: json, table")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAgentsCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newCacheCommand())

	return rootCmd
}

// defaultOutput picks tables for an interactive terminal and JSON otherwise.
func defaultOutput() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "table"
	}
	return "json"
}
