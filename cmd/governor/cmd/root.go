// Package cmd provides the CLI commands for governor.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siva-ai/governor/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "governor",
	Short: "Governor - capability governance and deterministic model routing",
	Long: `Governor resolves agent personas, authorizes capabilities against
versioned policies, routes work to backend models deterministically, and
seals every grant into a hash-verifiable context envelope.

Quick start:
  1. Create a config file: governor.yaml
  2. Seed governance data: governor seed --file fixtures.yaml
  3. Run: governor serve

Configuration:
  Config is loaded from governor.yaml in the current directory,
  $HOME/.governor/, or /etc/governor/.

  Environment variables can override config values with the GOVERNOR_ prefix.
  Example: GOVERNOR_SERVER_HTTP_ADDR=:9090

Commands:
  serve       Start the governance API server
  seed        Load personas, policies, territories, and models from YAML
  hash-key    Generate SHA256 hash for an API key
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./governor.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
