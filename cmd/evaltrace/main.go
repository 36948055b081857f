package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"evaltrace/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "evaltrace",
	Short:         "Expression evaluation trace tools",
	Long:          `evaltrace records, collects and folds evaluation traces of instrumented expressions`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(foldCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "path to evaltrace.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level for long-running commands (debug|info|warn|error)")
}

// main executes the root command. If command execution returns an error, the
// process exits with status code 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
