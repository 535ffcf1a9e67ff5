package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/config"
	"github.com/lucasnoah/gateagent/internal/gate"
	"github.com/lucasnoah/gateagent/internal/gates"
	"github.com/lucasnoah/gateagent/internal/history"
	"github.com/lucasnoah/gateagent/internal/report"
)

// newCommandRunner builds the process runner used by gates. Tests replace it.
var newCommandRunner = func() checks.CommandRunner {
	return &checks.ExecRunner{}
}

var (
	runConfigFlag    string
	runFailFastFlag  bool
	runFormatFlag    []string
	runNoHistoryFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality gates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := loadRunConfig(root)
		if err != nil {
			return err
		}

		if runFailFastFlag {
			cfg.FailFast = true
		}
		if cmd.Flags().Changed("format") {
			cfg.Reporting.Formats = runFormatFlag
			if errs := config.Validate(cfg); len(errs) > 0 {
				return toolError(config.ValidationErrors(errs))
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Running quality gates from: %s\n", root)
		fmt.Fprintf(out, "Using config: %s\n\n", cfg.Path())

		rep := runGates(cmd.Context(), root, cfg, cmd.ErrOrStderr())

		if _, err := report.Write(cfg.Reporting.Formats, rep, report.Options{
			ProjectRoot: root,
			OutputDir:   cfg.Reporting.OutputDir,
			Out:         out,
		}); err != nil {
			return toolError(err)
		}

		if cfg.History.Enabled && !runNoHistoryFlag {
			if err := recordHistory(cmd.Context(), root, cfg, rep); err != nil {
				logger.Warn("recording run history failed", "error", err)
			}
		}

		if !rep.Success {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFlag, "config", "c", "", "path to gate-agent.yml (default: searched upward from --cwd)")
	runCmd.Flags().BoolVar(&runFailFastFlag, "fail-fast", false, "stop at the first failed or errored gate")
	runCmd.Flags().StringSliceVar(&runFormatFlag, "format", nil, "report formats to write, overriding reporting.formats")
	runCmd.Flags().BoolVar(&runNoHistoryFlag, "no-history", false, "do not record this run in the history store")
}

// loadRunConfig requires a config file: either --config or one found
// upward from root.
func loadRunConfig(root string) (*config.Config, error) {
	path := runConfigFlag
	if path == "" {
		found, err := config.Find(root)
		if errors.Is(err, config.ErrNotFound) {
			return nil, toolError(errors.New("no gate-agent.yml configuration found; run \"gate-agent init\" to create one"))
		}
		if err != nil {
			return nil, toolError(err)
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, toolError(err)
	}
	return cfg, nil
}

// runGates registers the built-in and custom gates and runs them once.
// Progress is drawn on progressOut when it is a terminal.
func runGates(ctx context.Context, root string, cfg *config.Config, progressOut io.Writer) *gate.Report {
	var opts []gate.Option
	if isTerminal(progressOut) {
		opts = append(opts, gate.WithObserver(newProgress(progressOut)))
	}
	return newOrchestrator(cfg, opts...).Run(ctx, &gate.RunContext{ProjectRoot: root, Config: cfg})
}

// newOrchestrator registers the built-in and custom gates in run order.
func newOrchestrator(cfg *config.Config, opts ...gate.Option) *gate.Orchestrator {
	runner := checks.NewRunner(newCommandRunner(), logger)
	o := gate.New(append([]gate.Option{gate.WithLogger(logger)}, opts...)...)
	for _, g := range gates.All(runner, cfg, logger) {
		o.Register(g)
	}
	return o
}

// historyDSN resolves a relative SQLite path against the project root.
func historyDSN(root string, cfg *config.Config) string {
	dsn := cfg.History.DSN
	if cfg.History.IsPostgres() || dsn == ":memory:" || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(root, dsn)
}

func openHistory(root string, cfg *config.Config) (*history.Store, error) {
	s, err := history.Open(historyDSN(root, cfg))
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	logger.Debug("history store open", "driver", s.Driver())
	return s, nil
}

func recordHistory(ctx context.Context, root string, cfg *config.Config, rep *gate.Report) error {
	s, err := openHistory(root, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.Record(ctx, root, cfg.Digest(), rep)
	if err != nil {
		return err
	}
	logger.Info("recorded gate run", "run", id)
	return nil
}
