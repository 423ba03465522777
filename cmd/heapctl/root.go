package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/cmd/heapctl/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	debug   bool
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect heapkit heaps",
	Long: `heapctl replays allocation scripts against a heapkit heap and
inspects heap snapshots. Every run can be checked against the free-list
invariants and saved for later inspection.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Options{
			Enabled: debug,
			LogDir:  logDir,
			Level:   slog.LevelDebug,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		BoolVarP(&debug, "debug", "d", false, "Write allocator debug logs to --log-dir")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Directory for debug logs (default ~/.heapctl/logs)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}
