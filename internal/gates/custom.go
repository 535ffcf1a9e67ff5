package gates

import (
	"context"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/config"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// Custom runs a user-declared command and judges it with a named parser.
type Custom struct {
	runner *checks.Runner
	def    config.CustomGateConfig
}

// NewCustom builds the gate for one gates.custom entry.
func NewCustom(r *checks.Runner, def config.CustomGateConfig) *Custom {
	return &Custom{runner: r, def: def}
}

func (g *Custom) Name() string { return g.def.Name }

func (g *Custom) Enabled(*gate.RunContext) bool { return g.def.IsEnabled() }

func (g *Custom) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	parser := g.def.Parser
	if parser == "" {
		parser = "generic"
	}
	res, err := g.runner.Run(ctx, rootOf(rc), checks.CheckConfig{
		Name:    g.def.Name,
		Command: g.def.Command,
		Parser:  parser,
		Timeout: config.ParseDuration(g.def.Timeout, configOf(rc).Timeout()),
	})
	if err != nil {
		return nil, err
	}

	status := gate.StatusFailed
	if res.Passed {
		status = gate.StatusPassed
	}
	details := map[string]any{
		"command":  g.def.Command,
		"parser":   parser,
		"exitCode": res.ExitCode,
	}
	if len(res.Errors) > checks.MaxListed {
		details["errorCount"] = len(res.Errors)
	}
	if len(res.Warnings) > checks.MaxListed {
		details["warningCount"] = len(res.Warnings)
	}
	if res.TimedOut {
		details["timedOut"] = true
	}
	return &gate.Result{
		Name:     g.def.Name,
		Status:   status,
		Message:  res.Summary,
		Errors:   checks.Truncate(res.Errors, checks.MaxListed),
		Warnings: checks.Truncate(res.Warnings, checks.MaxListed),
		Details:  details,
	}, nil
}
