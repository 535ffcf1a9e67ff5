package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lucasnoah/gateagent/internal/checks"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is every problem found in one config file.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

var recognizedFormats = map[string]bool{
	FormatTerminal: true,
	FormatJSON:     true,
	FormatHTML:     true,
	FormatMarkdown: true,
}

// Validate checks a decoded Config for semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	g := cfg.Gates
	if g.ESLint.MaxErrors < 0 {
		add("gates.eslint.maxErrors", "must be >= 0, got %d", g.ESLint.MaxErrors)
	}
	if g.ESLint.MaxWarnings < -1 {
		add("gates.eslint.maxWarnings", "must be >= -1, got %d", g.ESLint.MaxWarnings)
	}

	for _, th := range []struct {
		key string
		val float64
	}{
		{"line", g.TestCoverage.Threshold.Line},
		{"branch", g.TestCoverage.Threshold.Branch},
		{"function", g.TestCoverage.Threshold.Function},
		{"statement", g.TestCoverage.Threshold.Statement},
	} {
		if th.val < 0 || th.val > 100 {
			add("gates.testCoverage.threshold."+th.key, "must be between 0 and 100, got %g", th.val)
		}
	}

	parsers := checks.ParserNames()
	names := make(map[string]int)
	for i, c := range g.Custom {
		prefix := fmt.Sprintf("gates.custom[%d]", i)
		name := strings.TrimSpace(c.Name)
		if name == "" {
			add(prefix+".name", "is required")
		} else if first, dup := names[name]; dup {
			add(prefix+".name", "duplicate gate name %q (also gates.custom[%d])", name, first)
		} else {
			names[name] = i
		}
		if strings.TrimSpace(c.Command) == "" {
			add(prefix+".command", "is required")
		}
		if c.Parser != "" && !slices.Contains(parsers, c.Parser) {
			add(prefix+".parser", "unrecognized parser %q (known: %s)", c.Parser, strings.Join(parsers, ", "))
		}
		if c.Timeout != "" && !validDuration(c.Timeout) {
			add(prefix+".timeout", "invalid duration %q", c.Timeout)
		}
	}

	for i, f := range cfg.Reporting.Formats {
		if !recognizedFormats[f] {
			add(fmt.Sprintf("reporting.formats[%d]", i), "unrecognized format %q", f)
		}
	}
	if strings.TrimSpace(cfg.Reporting.OutputDir) == "" {
		add("reporting.outputDir", "is required")
	}

	if cfg.History.Enabled && strings.TrimSpace(cfg.History.DSN) == "" {
		add("history.dsn", "is required when history is enabled")
	}

	if cfg.CommandTimeout != "" && !validDuration(cfg.CommandTimeout) {
		add("commandTimeout", "invalid duration %q", cfg.CommandTimeout)
	}

	return errs
}

func validDuration(s string) bool {
	d, err := time.ParseDuration(s)
	return err == nil && d > 0
}
