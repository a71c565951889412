package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	if err := LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
	}
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "xwsync",
		Short: "CLI tool for the xwsync game server",
		Long: `xwsync drives crossword board games kept in sync across devices.

Remote commands talk to a running server's JSON API. The play and serve
commands run the game engine in-process.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Output != "text" && cfg.Output != "json" {
				return fmt.Errorf("unknown output format %q", cfg.Output)
			}
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: XWSYNC_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newGamesCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
