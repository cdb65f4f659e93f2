// Package commands provides the CLI commands for shellbot.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shellbot-ai/shellbot/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "shellbot",
	Short: "shellbot - command authorization for AI-proposed shell commands",
	Long: `shellbot decides whether shell commands proposed by an AI assistant
may run: each command line is split into components, matched against an
allow/deny policy, and either executed, denied, or surfaced for approval.

Run 'shellbot run' for an interactive authorize-and-execute loop, or
'shellbot check' to get a verdict without running anything.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		cfg := logging.DefaultConfig()
		if cmd.Flags().Changed("log-level") {
			cfg.Level = logging.ParseLevel(logLevel)
		}
		if printLogs {
			cfg.Pretty = true
		} else {
			cfg.Output = io.Discard
		}
		logging.Init(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("shellbot %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(policyCmd)
}

// Execute runs the root command. Verdict exit codes from check bypass the
// normal error path so wrappers can branch on them.
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *silentExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	return err
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
