// Package main provides the CLI entry point for the Wheelhouse showroom
// assistant: a streaming tool-calling agent over a vehicle catalog, FAQ
// knowledge base, and test-drive booking book.
//
// # Basic Usage
//
// Start an interactive chat:
//
//	wheelhouse chat --config wheelhouse.yaml
//
// # Environment Variables
//
//   - OPENAI_API_KEY: OpenAI API key (provider: openai)
//   - ANTHROPIC_API_KEY: Anthropic API key (provider: anthropic)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "wheelhouse",
		Short:         "Wheelhouse is a streaming tool-calling showroom assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (YAML)")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wheelhouse %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
