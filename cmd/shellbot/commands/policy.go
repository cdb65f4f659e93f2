package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellbot-ai/shellbot/internal/config"
)

var policyDir string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective policy",
	Long: `Print the rules the current configuration compiles to: deny rules,
allow rules, the default for unlisted commands, and any rules disabled
because their regex failed to compile.`,
	RunE: printPolicy,
}

func init() {
	policyCmd.Flags().StringVar(&policyDir, "directory", "", "Working directory")
}

func printPolicy(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(policyDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	policy := cfg.Policy()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Config: %s\n\n", cfg.Path())

	fmt.Fprintf(out, "Deny (%d):\n", len(policy.DenyPatterns()))
	for _, rule := range policy.DenyPatterns() {
		fmt.Fprintf(out, "  %s\n", rule)
	}

	fmt.Fprintf(out, "\nAllow (%d):\n", len(policy.AllowPatterns()))
	for _, rule := range policy.AllowPatterns() {
		fmt.Fprintf(out, "  %s\n", rule)
	}

	defaultVerdict := "ask"
	if !cfg.Permissions.AskDefault() {
		defaultVerdict = "deny"
	}
	fmt.Fprintf(out, "\nUnlisted commands: %s\n", defaultVerdict)

	if disabled := policy.DisabledRules(); len(disabled) > 0 {
		fmt.Fprintf(out, "\nDisabled rules (%d, regex failed to compile):\n", len(disabled))
		for _, rule := range disabled {
			fmt.Fprintf(out, "  [%s] %s\n", rule.Direction, rule.Text)
		}
	}

	return nil
}
