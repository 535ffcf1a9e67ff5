package gates

import (
	"context"
	"fmt"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// Prettier checks formatting with prettier --check.
type Prettier struct {
	runner *checks.Runner
}

func (g *Prettier) Name() string { return "Prettier" }

func (g *Prettier) Enabled(rc *gate.RunContext) bool {
	return configOf(rc).Gates.Prettier.Enabled
}

func (g *Prettier) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	if _, ok := firstExisting(rootOf(rc), prettierConfigFiles); !ok {
		return skipped(g.Name(), "No Prettier configuration found"), nil
	}

	out, timedOut, err := runTool(ctx, g.runner, rc, g.Name(), "npx prettier --check . --ignore-unknown")
	if timedOut != nil || err != nil {
		return timedOut, err
	}

	if out.ExitCode == 0 {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusPassed,
			Message: "All files are formatted correctly",
		}, nil
	}

	files := checks.UnformattedFiles(out.Stdout)
	return &gate.Result{
		Name:    g.Name(),
		Status:  gate.StatusFailed,
		Message: fmt.Sprintf("%d file(s) not formatted", len(files)),
		Errors:  checks.Truncate(files, checks.MaxListed),
		Details: map[string]any{
			"unformattedCount": len(files),
		},
	}, nil
}
