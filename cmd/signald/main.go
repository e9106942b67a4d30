// Package main implements the signald CLI for running signal detection
// over feed items against a context document.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML configuration file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "signald",
	Short: "Explainable signal detection over developer feeds",
	Long: `signald ranks items from GitHub, Hacker News and RSS feeds against a
context document describing what you care about, and reports the signals
that are relevant, novel and classified with a human-readable reason.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(noveltyCmd)
}
