package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/shellbot-ai/shellbot/internal/audit"
	"github.com/shellbot-ai/shellbot/internal/config"
	"github.com/shellbot-ai/shellbot/internal/executor"
	"github.com/shellbot-ai/shellbot/internal/permission"
)

var (
	runDir     string
	runSession string
	runWatch   bool
)

var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Authorize and execute shell commands",
	Long: `Authorize a command line against the policy and execute it when the
verdict is EXECUTE. Commands needing approval are confirmed interactively.

With arguments, authorizes and runs that single line. Without arguments,
starts an interactive loop reading one line at a time.

Examples:
  shellbot run "ls -la"
  shellbot run "git status && git diff"
  shellbot run --watch   # interactive loop, policy reloads on config change`,
	RunE: runShell,
}

func init() {
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session ID (defaults to a fresh one)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Reload the policy when the config file changes")
}

func runShell(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(runDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	sessionID := runSession
	if sessionID == "" {
		sessionID = "sess_" + ulid.Make().String()
	}

	engine := permission.NewEngine(sessionID, cfg.Policy(),
		permission.WithPrompter(newTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())),
		permission.WithPolicyStore(config.NewStore(cfg)),
	)

	exec, err := buildExecutor(cfg, workDir)
	if err != nil {
		return err
	}

	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		auditLog = audit.New(auditDir(cfg))
	}

	// Reloaded configs are handed over a channel and applied on this
	// goroutine between line evaluations; the engine is not safe for
	// concurrent use, so the watcher callback never touches it directly.
	var reloads chan *config.Config
	if runWatch {
		reloads = make(chan *config.Config, 1)
		watcher, err := config.Watch(cfg.Path(), func(fresh *config.Config) {
			select {
			case <-reloads:
			default:
			}
			reloads <- fresh
		})
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		defer watcher.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) > 0 {
		applyReload(engine, reloads)
		return authorizeAndRun(ctx, cmd, engine, exec, auditLog, strings.Join(args, " "))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "shellbot session %s (type 'exit' to quit)\n", sessionID)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		applyReload(engine, reloads)
		fmt.Fprint(cmd.OutOrStdout(), "shellbot> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := authorizeAndRun(ctx, cmd, engine, exec, auditLog, line); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}
}

// applyReload swaps in the most recent reloaded policy, if one is pending.
// It never blocks, and a nil channel (watching disabled) is a no-op.
func applyReload(engine *permission.Engine, reloads <-chan *config.Config) {
	select {
	case fresh := <-reloads:
		engine.ReplacePolicy(fresh.Policy())
	default:
	}
}

func authorizeAndRun(ctx context.Context, cmd *cobra.Command, engine *permission.Engine, exec *executor.Executor, auditLog *audit.Log, line string) error {
	result := engine.Authorize(ctx, line)
	if auditLog != nil {
		auditLog.Record(engine.SessionID(), result)
	}

	switch result.Verdict {
	case permission.VerdictExecute:
		run, err := exec.Run(ctx, engine.SessionID(), line)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), run.Output)
		if run.ExitCode != 0 {
			return fmt.Errorf("command exited with code %d", run.ExitCode)
		}
		return nil

	case permission.VerdictAsk:
		// Only reachable without a prompter; run always has one.
		return fmt.Errorf("command requires approval: %s", line)

	default:
		return &permission.DeniedError{
			SessionID: engine.SessionID(),
			Command:   line,
			Message:   fmt.Sprintf("command denied: %s", line),
		}
	}
}

func buildExecutor(cfg *config.Config, workDir string) (*executor.Executor, error) {
	opts := []executor.Option{}
	if cfg.Executor.TimeoutSeconds > 0 {
		opts = append(opts, executor.WithTimeout(time.Duration(cfg.Executor.TimeoutSeconds)*time.Second))
	}
	if len(cfg.Executor.AllowedPaths) > 0 {
		guard, err := executor.NewPathGuard(cfg.Executor.AllowedPaths)
		if err != nil {
			return nil, err
		}
		opts = append(opts, executor.WithPathGuard(guard))
	}
	return executor.New(workDir, opts...), nil
}

func auditDir(cfg *config.Config) string {
	if cfg.Audit.Dir != "" {
		return cfg.Audit.Dir
	}
	return config.GetPaths().AuditPath()
}
