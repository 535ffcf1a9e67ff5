package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	cwdFlag      string
	logLevelFlag string
	verboseFlag  bool

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "gate-agent",
	Short: "gate-agent runs configurable quality gates over a project",
	Long: `gate-agent runs a fixed set of quality gates (ESLint, Prettier, TypeScript,
test coverage, osv-scanner, ESLint security rules) plus any custom command gates
declared in gate-agent.yml, and reports the outcome in one place.

Exit codes: 0 when every gate passed or was skipped, 1 when a gate failed or
errored, 2 when gate-agent itself could not do its job.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(cmd.ErrOrStderr(), logLevelFlag, verboseFlag)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(rootCmd.ErrOrStderr(), err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cwdFlag, "cwd", "", "project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "shorthand for --log-level debug")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}

// exitError carries a process exit code. A nil err means the command has
// already told the user what happened.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// toolError marks err as a failure of gate-agent itself (exit code 2).
func toolError(err error) error {
	return &exitError{code: 2, err: err}
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(w, "Error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(w, "Error:", err)
	return 2
}

func newLogger(w io.Writer, level string, verbose bool) (*slog.Logger, error) {
	var lvl slog.Level
	if verbose {
		lvl = slog.LevelDebug
	} else if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, toolError(fmt.Errorf("invalid --log-level %q", level))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// projectRoot resolves --cwd to an absolute directory.
func projectRoot() (string, error) {
	dir := cwdFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", toolError(fmt.Errorf("get working directory: %w", err))
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", toolError(fmt.Errorf("resolve %s: %w", dir, err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", toolError(fmt.Errorf("project directory: %w", err))
	}
	if !info.IsDir() {
		return "", toolError(fmt.Errorf("project directory %s is not a directory", abs))
	}
	return abs, nil
}
