package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	configPath string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wintail",
	Short: "Incremental win extractor for game server logfiles",
	Long: `wintail follows a game server logfile that is only reachable as a flat
byte stream over HTTP and extracts wins ("escaped with the Orb") from it.

Only the bytes appended since the last poll are fetched and parsed. The
consumed offset per source is stored durably, so restarts resume where the
previous run stopped.

Wins are output as JSON Lines for easy processing with other tools.`,
	SilenceUsage: true, // Don't show usage on error
}

func init() {
	// Global flags (inherited by all subcommands)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default $WINTAIL_CONFIG or ~/.config/wintail/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serveLogCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(offsetCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wintail %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
