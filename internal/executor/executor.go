// Package executor runs authorized command lines through the user shell.
package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shellbot-ai/shellbot/internal/event"
	"github.com/shellbot-ai/shellbot/internal/logging"
	"github.com/shellbot-ai/shellbot/internal/permission"
)

const (
	DefaultTimeout  = 120 * time.Second
	MaxTimeout      = 10 * time.Minute
	MaxOutputLength = 30000
	sigkillTimeout  = 200 * time.Millisecond
)

// Result is the outcome of one command run.
type Result struct {
	Output   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Executor runs raw command lines via the user shell. It performs no
// authorization itself; callers hand it lines only after a final EXECUTE
// verdict. It does enforce the configured path guard, which is a property of
// the host filesystem rather than of the command text.
type Executor struct {
	workDir string
	shell   string
	timeout time.Duration
	guard   *PathGuard
	log     zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds a single command run. Values above MaxTimeout clamp.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPathGuard restricts file-modifying commands to the guarded globs.
func WithPathGuard(g *PathGuard) Option {
	return func(e *Executor) { e.guard = g }
}

// New creates an executor rooted at workDir.
func New(workDir string, opts ...Option) *Executor {
	e := &Executor{
		workDir: workDir,
		shell:   detectShell(),
		timeout: DefaultTimeout,
		log:     logging.For("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout > MaxTimeout {
		e.timeout = MaxTimeout
	}
	return e
}

// Shell returns the shell binary commands run through.
func (e *Executor) Shell() string {
	return e.shell
}

// Run executes one command line and captures its combined output. Run never
// starts the process when the path guard refuses a component.
func (e *Executor) Run(ctx context.Context, sessionID, line string) (*Result, error) {
	if e.guard != nil {
		if err := e.guard.Check(permission.NormalizeLine(line), e.workDir); err != nil {
			return nil, err
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cmdCtx, e.shell, "/c", line)
	} else {
		cmd = exec.CommandContext(cmdCtx, e.shell, "-c", line)
	}

	cmd.Dir = e.workDir
	cmd.Env = os.Environ()
	if runtime.GOOS != "windows" {
		// Process group so killing the shell also kills its children.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error {
			killGroup(cmd)
			return nil
		}
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()
	timedOut := cmdCtx.Err() == context.DeadlineExceeded

	result := &Result{
		Output:   string(output),
		TimedOut: timedOut,
		Duration: time.Since(start),
	}
	if len(result.Output) > MaxOutputLength {
		result.Output = result.Output[:MaxOutputLength] + "\n\n(Output truncated)"
	}
	if timedOut {
		result.Output += fmt.Sprintf("\n\n(Command timed out after %v)", e.timeout)
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && !timedOut {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to run command: %w", err)
		}
	}

	e.log.Debug().
		Str("session", sessionID).
		Str("command", line).
		Int("exit", result.ExitCode).
		Dur("duration", result.Duration).
		Bool("timed_out", timedOut).
		Msg("command executed")

	event.Publish(event.Event{
		Type: event.CommandExecuted,
		Data: event.CommandExecutedData{
			SessionID: sessionID,
			Command:   line,
			ExitCode:  result.ExitCode,
			TimedOut:  timedOut,
		},
	})

	return result, nil
}

func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		// Exclude shells whose -c semantics differ
		if s != "/bin/fish" && s != "/usr/bin/fish" &&
			s != "/bin/nu" && s != "/usr/bin/nu" {
			return s
		}
	}

	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}

	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	return "/bin/sh"
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(sigkillTimeout)
	if cmd.ProcessState == nil {
		syscall.Kill(-pid, syscall.SIGKILL)
	}
}
