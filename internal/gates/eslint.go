package gates

import (
	"context"
	"fmt"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// ESLint lints the project with the project's own ESLint config.
type ESLint struct {
	runner *checks.Runner
}

func (g *ESLint) Name() string { return "ESLint" }

func (g *ESLint) Enabled(rc *gate.RunContext) bool {
	return configOf(rc).Gates.ESLint.Enabled
}

func (g *ESLint) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	cfg := configOf(rc).Gates.ESLint
	if _, ok := firstExisting(rootOf(rc), eslintConfigFiles); !ok {
		return skipped(g.Name(), "No ESLint configuration found"), nil
	}

	command := "npx eslint . --format json"
	if cfg.MaxWarnings >= 0 {
		command += fmt.Sprintf(" --max-warnings %d", cfg.MaxWarnings)
	}
	out, timedOut, err := runTool(ctx, g.runner, rc, g.Name(), command)
	if timedOut != nil || err != nil {
		return timedOut, err
	}

	files, err := checks.DecodeESLint(out.Stdout)
	if err != nil {
		if out.ExitCode == 0 {
			return skipped(g.Name(), "ESLint not installed"), nil
		}
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusError,
			Message: "Failed to parse ESLint output",
			Errors:  nonEmpty(out.Stderr),
		}, nil
	}

	s := checks.SummarizeESLint(files, nil)
	passed := s.Errors <= cfg.MaxErrors && (cfg.MaxWarnings < 0 || s.Warnings <= cfg.MaxWarnings)
	status := gate.StatusFailed
	if passed {
		status = gate.StatusPassed
	}

	return &gate.Result{
		Name:     g.Name(),
		Status:   status,
		Message:  fmt.Sprintf("%d error(s), %d warning(s)", s.Errors, s.Warnings),
		Errors:   checks.Truncate(s.ErrorLines, checks.MaxListed),
		Warnings: checks.Truncate(s.WarningLines, checks.MaxListed),
		Details: map[string]any{
			"errorCount":   s.Errors,
			"warningCount": s.Warnings,
			"maxErrors":    cfg.MaxErrors,
			"maxWarnings":  cfg.MaxWarnings,
		},
	}, nil
}
