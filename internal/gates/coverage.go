package gates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// coverageSummaryPath is where istanbul's json-summary reporter writes.
var coverageSummaryPath = filepath.Join("coverage", "coverage-summary.json")

// TestCoverage runs the project's jest or vitest suite with coverage and
// compares the totals against the configured thresholds.
type TestCoverage struct {
	runner *checks.Runner
	logger *slog.Logger
}

func (g *TestCoverage) Name() string { return "Test Coverage" }

func (g *TestCoverage) Enabled(rc *gate.RunContext) bool {
	return configOf(rc).Gates.TestCoverage.Enabled
}

// detectFramework prefers vitest when both are declared.
func detectFramework(dir string) string {
	deps := dependencies(dir)
	if _, ok := deps["vitest"]; ok {
		return "vitest"
	}
	if _, ok := deps["jest"]; ok {
		return "jest"
	}
	if _, ok := deps["@jest/core"]; ok {
		return "jest"
	}
	return ""
}

func (g *TestCoverage) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	root := rootOf(rc)
	framework := detectFramework(root)
	if framework == "" {
		return skipped(g.Name(), "No test framework detected (Jest or Vitest)"), nil
	}

	command := "CI=true npx vitest run --coverage"
	if framework == "jest" {
		command = "CI=true npx jest --coverage --json"
	}
	out, timedOut, err := runTool(ctx, g.runner, rc, g.Name(), command)
	if timedOut != nil || err != nil {
		return timedOut, err
	}

	details := map[string]any{"framework": framework}
	if framework == "jest" {
		if run, err := checks.DecodeTestRun(out.Stdout); err == nil {
			details["tests"] = map[string]int{
				"total":   run.NumTotalTests,
				"passed":  run.NumPassedTests,
				"failed":  run.NumFailedTests,
				"skipped": run.NumPendingTests,
			}
		} else {
			g.logger.Debug("jest output is not JSON", "error", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, coverageSummaryPath))
	if errors.Is(err, fs.ErrNotExist) {
		if out.ExitCode != 0 {
			return &gate.Result{
				Name:    g.Name(),
				Status:  gate.StatusFailed,
				Message: "Tests failed or coverage not generated",
				Errors:  []string{"Run tests with coverage enabled"},
				Details: details,
			}, nil
		}
		return skipped(g.Name(), "Coverage not configured"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading coverage summary: %w", err)
	}

	summary, err := checks.DecodeCoverageSummary(data)
	if err != nil {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusError,
			Message: "Failed to parse coverage summary",
			Errors:  []string{err.Error()},
			Details: details,
		}, nil
	}

	th := configOf(rc).Gates.TestCoverage.Threshold
	total := summary.Total
	var failures []string
	for _, c := range []struct {
		label string
		pct   checks.Percent
		min   float64
	}{
		{"Line", total.Lines.Pct, th.Line},
		{"Statement", total.Statements.Pct, th.Statement},
		{"Function", total.Functions.Pct, th.Function},
		{"Branch", total.Branches.Pct, th.Branch},
	} {
		// Nothing to cover in this dimension.
		if !c.pct.Measured {
			continue
		}
		if c.pct.Value < c.min {
			failures = append(failures, fmt.Sprintf("%s coverage %s < %g%%", c.label, c.pct, c.min))
		}
	}

	details["coverage"] = map[string]checks.Percent{
		"lines":      total.Lines.Pct,
		"statements": total.Statements.Pct,
		"functions":  total.Functions.Pct,
		"branches":   total.Branches.Pct,
	}
	details["thresholds"] = map[string]float64{
		"line":      th.Line,
		"branch":    th.Branch,
		"function":  th.Function,
		"statement": th.Statement,
	}

	if len(failures) == 0 {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusPassed,
			Message: fmt.Sprintf("All coverage thresholds met (%s line coverage)", total.Lines.Pct),
			Details: details,
		}, nil
	}
	return &gate.Result{
		Name:    g.Name(),
		Status:  gate.StatusFailed,
		Message: fmt.Sprintf("%d coverage threshold(s) not met", len(failures)),
		Errors:  failures,
		Details: details,
	}, nil
}
