package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/gate"
)

var (
	securityPlugins = []string{
		"eslint-plugin-security",
		"@eslint-community/eslint-plugin-security",
		"eslint-plugin-no-secrets",
		"eslint-plugin-xss",
	}
	securityRulePrefixes = []string{"security/", "no-secrets/", "xss/"}
)

// ESLintSecurity reports findings from ESLint security plugins only.
type ESLintSecurity struct {
	runner *checks.Runner
}

func (g *ESLintSecurity) Name() string { return "ESLint Security" }

func (g *ESLintSecurity) Enabled(rc *gate.RunContext) bool {
	return configOf(rc).Gates.ESLintSecurity.Enabled
}

func hasSecurityPlugin(dir string) bool {
	deps := dependencies(dir)
	for _, p := range securityPlugins {
		if _, ok := deps[p]; ok {
			return true
		}
	}
	return false
}

func isSecurityRule(rule string) bool {
	for _, prefix := range securityRulePrefixes {
		if strings.HasPrefix(rule, prefix) {
			return true
		}
	}
	return false
}

func (g *ESLintSecurity) Run(ctx context.Context, rc *gate.RunContext) (*gate.Result, error) {
	root := rootOf(rc)
	if _, ok := firstExisting(root, eslintConfigFiles); !ok {
		return skipped(g.Name(), "No ESLint configuration found"), nil
	}
	if !hasSecurityPlugin(root) {
		return skipped(g.Name(), "No ESLint security plugin installed (try: eslint-plugin-security)"), nil
	}

	out, timedOut, err := runTool(ctx, g.runner, rc, g.Name(), "npx eslint . --format json")
	if timedOut != nil || err != nil {
		return timedOut, err
	}

	files, err := checks.DecodeESLint(out.Stdout)
	if err != nil {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusError,
			Message: "Failed to parse ESLint output",
			Errors:  nonEmpty(out.Stderr),
		}, nil
	}

	s := checks.SummarizeESLint(files, isSecurityRule)
	if s.Errors == 0 {
		return &gate.Result{
			Name:    g.Name(),
			Status:  gate.StatusPassed,
			Message: "No security issues found",
		}, nil
	}
	return &gate.Result{
		Name:    g.Name(),
		Status:  gate.StatusFailed,
		Message: fmt.Sprintf("%d security issue(s) found", s.Errors),
		Errors:  checks.Truncate(s.ErrorLines, checks.MaxListed),
		Details: map[string]any{
			"securityErrorCount": s.Errors,
		},
	}, nil
}
