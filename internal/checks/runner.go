package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a command outlives its deadline.
var ErrTimeout = errors.New("command timed out")

// defaultTimeout bounds commands whose caller did not pick a timeout.
const defaultTimeout = 2 * time.Minute

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
	LookPath(name string) (string, error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct {
	// WaitDelay is how long a killed command may keep its pipes open.
	WaitDelay time.Duration
}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 2 * time.Second
	}

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return stdoutBuf.String(), stderrBuf.String(), -1, ErrTimeout
		}
		return stdoutBuf.String(), stderrBuf.String(), -1, ctxErr
	}
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

func (e *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Output is the raw result of one command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Result holds the structured output of a check run.
type Result struct {
	CheckName string        `json:"check_name"`
	Passed    bool          `json:"passed"`
	TimedOut  bool          `json:"timed_out,omitempty"`
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"duration"`
	Summary   string        `json:"summary"`
	Errors    []string      `json:"errors,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Findings  any           `json:"findings,omitempty"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
}

// CheckConfig is a user-defined command check.
type CheckConfig struct {
	Name    string
	Command string
	Parser  string
	Timeout time.Duration
}

// Runner executes commands and parses their output.
type Runner struct {
	cmd     CommandRunner
	parsers map[string]Parser
	logger  *slog.Logger
}

// NewRunner creates a Runner with the given command runner. A nil logger
// discards output.
func NewRunner(cmd CommandRunner, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		cmd:     cmd,
		logger:  logger,
		parsers: newParsers(),
	}
}

// Parser returns the named parser, falling back to the generic one.
func (r *Runner) Parser(name string) Parser {
	if p, ok := r.parsers[name]; ok {
		return p
	}
	return r.parsers["generic"]
}

// LookPath reports where an executable lives on PATH.
func (r *Runner) LookPath(name string) (string, error) {
	return r.cmd.LookPath(name)
}

// Exec runs command in dir, bounded by timeout. A non-zero exit code is not
// an error; a missed deadline returns ErrTimeout.
func (r *Runner) Exec(ctx context.Context, dir, command string, timeout time.Duration) (Output, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Debug("running command", "dir", dir, "command", command, "timeout", timeout)
	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(ctx, dir, command)
	out := Output{Stdout: stdout, Stderr: stderr, ExitCode: exitCode, Duration: time.Since(start)}

	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("command timed out", "command", command, "timeout", timeout)
			return out, fmt.Errorf("%q after %s: %w", command, timeout, ErrTimeout)
		}
		return out, fmt.Errorf("run %q: %w", command, err)
	}
	r.logger.Debug("command finished", "command", command, "exit_code", exitCode, "duration", out.Duration)
	return out, nil
}

// Run executes a single check in the given directory.
func (r *Runner) Run(ctx context.Context, dir string, cfg CheckConfig) (*Result, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	out, err := r.Exec(ctx, dir, cfg.Command, timeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return &Result{
				CheckName: cfg.Name,
				Passed:    false,
				TimedOut:  true,
				ExitCode:  -1,
				Duration:  out.Duration,
				Summary:   fmt.Sprintf("timed out after %s", timeout),
				Stdout:    out.Stdout,
				Stderr:    out.Stderr,
			}, nil
		}
		return nil, fmt.Errorf("run check %q: %w", cfg.Name, err)
	}

	parsed := r.Parser(cfg.Parser).Parse(out.Stdout, out.Stderr, out.ExitCode)

	return &Result{
		CheckName: cfg.Name,
		Passed:    out.ExitCode == 0 && parsed.Passed,
		ExitCode:  out.ExitCode,
		Duration:  out.Duration,
		Summary:   parsed.Summary,
		Errors:    parsed.Errors,
		Warnings:  parsed.Warnings,
		Findings:  parsed.Findings,
		Stdout:    out.Stdout,
		Stderr:    out.Stderr,
	}, nil
}
