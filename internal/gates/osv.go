package gates

import (
	"context"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// OSVScanner scans the project's lock file for known vulnerabilities.
type OSVScanner struct {
	runner *checks.Runner
}

func (g *OSVScanner) Name() string { return "OSV Scanner" }

func (g *OSVScanner) Enabled(rc *gate.RunContext) bool {
	return configOf(rc).Gates.OSVScanner.Enabled
}

func (g *OSVScanner) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	lockFile, ok := firstExisting(rootOf(rc), lockFiles)
	if !ok {
		return skipped(g.Name(), "No lock file found (package-lock.json, yarn.lock, or pnpm-lock.yaml)"), nil
	}
	if _, err := g.runner.LookPath("osv-scanner"); err != nil {
		return skipped(g.Name(), "osv-scanner not installed. Install with: go install github.com/google/osv-scanner/cmd/osv-scanner@latest"), nil
	}

	out, timedOut, err := runTool(ctx, g.runner, rc, g.Name(), "osv-scanner --format json --lockfile "+lockFile)
	if timedOut != nil || err != nil {
		return timedOut, err
	}

	// osv-scanner exits 0 when clean and 1 when it found vulnerabilities.
	if out.ExitCode == 0 {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusPassed,
			Message: "No vulnerabilities found",
		}, nil
	}

	report, err := checks.DecodeOSV(out.Stdout)
	if err != nil {
		if out.ExitCode == 1 {
			return &gate.Result{
				Name:    g.Name(),
				Status:  gate.StatusFailed,
				Message: "Vulnerabilities detected (run osv-scanner locally for details)",
			}, nil
		}
		stderr := out.Stderr
		if stderr == "" {
			stderr = "Unknown error"
		}
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusError,
			Message: "Failed to run osv-scanner",
			Errors:  []string{stderr},
			Details: map[string]any{"exitCode": out.ExitCode},
		}, nil
	}

	vulns := report.Vulnerabilities()
	return &gate.Result{
		Name:    g.Name(),
		Status:  gate.StatusFailed,
		Message: checks.VulnerabilityMessage(len(vulns)),
		Errors:  checks.Truncate(vulns, checks.MaxListed),
		Details: map[string]any{
			"vulnerabilityCount": len(vulns),
			"lockfile":           lockFile,
		},
	}, nil
}

