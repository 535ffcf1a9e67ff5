// Package gates holds the built-in quality gates and the user-defined
// command gates declared in config.
package gates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lucasnoah/gateagent/internal/checks"
	"github.com/lucasnoah/gateagent/internal/config"
	"github.com/lucasnoah/gateagent/internal/gate"
)

var (
	eslintConfigFiles = []string{
		"eslint.config.js",
		"eslint.config.mjs",
		"eslint.config.cjs",
		".eslintrc.js",
		".eslintrc.cjs",
		".eslintrc.yaml",
		".eslintrc.yml",
		".eslintrc.json",
		".eslintrc",
	}
	prettierConfigFiles = []string{
		".prettierrc",
		".prettierrc.json",
		".prettierrc.yml",
		".prettierrc.yaml",
		".prettierrc.json5",
		".prettierrc.js",
		".prettierrc.cjs",
		".prettierrc.mjs",
		"prettier.config.js",
		"prettier.config.cjs",
		"prettier.config.mjs",
	}
	lockFiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}
)

// Builtin returns the built-in gates in registration order.
func Builtin(r *checks.Runner, logger *slog.Logger) []gate.Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return []gate.Gate{
		&ESLint{runner: r},
		&Prettier{runner: r},
		&TypeScript{runner: r},
		&TestCoverage{runner: r, logger: logger},
		&OSVScanner{runner: r},
		&ESLintSecurity{runner: r},
	}
}

// All returns the built-in gates followed by one gate per custom entry in cfg.
func All(r *checks.Runner, cfg *config.Config, logger *slog.Logger) []gate.Gate {
	all := Builtin(r, logger)
	if cfg == nil {
		return all
	}
	for _, c := range cfg.Gates.Custom {
		all = append(all, NewCustom(r, c))
	}
	return all
}

// configOf returns rc's config, or the defaults when there is none.
func configOf(rc *gate.RunContext) *config.Config {
	if rc == nil || rc.Config == nil {
		return config.Default()
	}
	return rc.Config
}

func rootOf(rc *gate.RunContext) string {
	if rc == nil || rc.ProjectRoot == "" {
		return "."
	}
	return rc.ProjectRoot
}

// firstExisting returns the first of names present as a file in dir.
func firstExisting(dir string, names []string) (string, bool) {
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return name, true
		}
	}
	return "", false
}

// dependencies merges dependencies and devDependencies from package.json.
// A missing or malformed file yields an empty set.
func dependencies(dir string) map[string]string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	deps := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for k, v := range pkg.Dependencies {
		deps[k] = v
	}
	for k, v := range pkg.DevDependencies {
		deps[k] = v
	}
	return deps
}

func skipped(name, message string) *gate.Result {
	return &gate.Result{Name: name, Status: gate.StatusSkipped, Message: message}
}

// runTool runs command in the project root under the configured timeout. A
// timeout comes back as a failed result; other failures as an error.
func runTool(ctx context.Context, r *checks.Runner, rc *gate.RunContext, name, command string) (checks.Output, *gate.Result, error) {
	timeout := configOf(rc).Timeout()
	out, err := r.Exec(ctx, rootOf(rc), command, timeout)
	if errors.Is(err, checks.ErrTimeout) {
		return out, &gate.Result{
			Name:    name,
			Status:  gate.StatusFailed,
			Message: fmt.Sprintf("timed out after %s", timeout),
		}, nil
	}
	if err != nil {
		return out, nil, err
	}
	return out, nil, nil
}

// nonEmpty drops blank entries and returns nil for an empty list.
func nonEmpty(list ...string) []string {
	var out []string
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
