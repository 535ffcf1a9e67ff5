package gates

import (
	"context"
	"fmt"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// TypeScript type-checks the project with tsc --noEmit.
type TypeScript struct {
	runner *checks.Runner
}

func (g *TypeScript) Name() string { return "TypeScript" }

func (g *TypeScript) Enabled(rc *gate.RunContext) bool {
	return configOf(rc).Gates.TypeScript.Enabled
}

func (g *TypeScript) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	if _, ok := firstExisting(rootOf(rc), []string{"tsconfig.json"}); !ok {
		return skipped(g.Name(), "No tsconfig.json found"), nil
	}

	command := "npx tsc --noEmit"
	if configOf(rc).Gates.TypeScript.Strict {
		command += " --strict"
	}
	out, timedOut, err := runTool(ctx, g.runner, rc, g.Name(), command)
	if timedOut != nil || err != nil {
		return timedOut, err
	}

	if out.ExitCode == 0 {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusPassed,
			Message: "No type errors found",
		}, nil
	}

	lines, count := checks.TypeScriptErrors(out.Stdout)
	return &gate.Result{
		Name:    g.Name(),
		Status:  gate.StatusFailed,
		Message: fmt.Sprintf("%d type error(s) found", count),
		Errors:  checks.Truncate(lines, checks.MaxListed),
		Details: map[string]any{
			"errorCount": count,
		},
	}, nil
}
