package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/shellbot-ai/shellbot/internal/config"
	"github.com/shellbot-ai/shellbot/internal/permission"
)

var (
	checkDir     string
	checkVerbose bool
)

// Exit codes for scripting: a wrapper can branch on the verdict without
// parsing output.
const (
	exitDeny = 1
	exitAsk  = 2
)

var checkCmd = &cobra.Command{
	Use:   "check <command...>",
	Short: "Print the verdict for a command line without running it",
	Long: `Authorize a command line and print the verdict. Nothing executes and
no approval is requested.

Exit codes: 0 EXECUTE, 1 DENY, 2 ASK.

Examples:
  shellbot check "ls -la"
  shellbot check "rm -rf / && echo done"`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          checkCommand,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	checkCmd.Flags().StringVar(&checkDir, "directory", "", "Working directory")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Print per-component verdicts")
}

func checkCommand(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(checkDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	line := strings.Join(args, " ")
	engine := permission.NewEngine("check_"+ulid.Make().String(), cfg.Policy())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := engine.Authorize(ctx, line)

	fmt.Fprintln(cmd.OutOrStdout(), strings.ToUpper(string(result.Verdict)))
	if checkVerbose {
		for _, cr := range result.Components {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-7s %s\n", strings.ToUpper(string(cr.Verdict)), cr.Component.Signature())
		}
	}

	switch result.Verdict {
	case permission.VerdictDeny:
		return exitError(exitDeny)
	case permission.VerdictAsk:
		return exitError(exitAsk)
	}
	return nil
}

// exitError maps a verdict to a process exit code without cobra printing a
// redundant error message.
func exitError(code int) error {
	return &silentExitError{code: code}
}

type silentExitError struct {
	code int
}

func (e *silentExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
