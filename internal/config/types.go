package config

import (
	"strings"
	"time"
)

// Config is the fully defaulted contents of gate-agent.yml.
type Config struct {
	Gates          GatesConfig     `yaml:"gates"`
	Reporting      ReportingConfig `yaml:"reporting"`
	History        HistoryConfig   `yaml:"history"`
	CommandTimeout string          `yaml:"commandTimeout"`
	FailFast       bool            `yaml:"failFast"`

	// path and digest describe the file the config was loaded from.
	path   string
	digest string
}

// GatesConfig holds the per-gate settings.
type GatesConfig struct {
	ESLint         ESLintConfig       `yaml:"eslint"`
	Prettier       ToggleConfig       `yaml:"prettier"`
	TypeScript     TypeScriptConfig   `yaml:"typescript"`
	TestCoverage   TestCoverageConfig `yaml:"testCoverage"`
	OSVScanner     ToggleConfig       `yaml:"osvScanner"`
	ESLintSecurity ToggleConfig       `yaml:"eslintSecurity"`
	Custom         []CustomGateConfig `yaml:"custom,omitempty"`
}

// ToggleConfig is the settings block for gates that only have an on/off switch.
type ToggleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ESLintConfig configures the ESLint gate. MaxWarnings of -1 means unlimited.
type ESLintConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxErrors   int  `yaml:"maxErrors"`
	MaxWarnings int  `yaml:"maxWarnings"`
}

// TypeScriptConfig configures the TypeScript gate.
type TypeScriptConfig struct {
	Enabled bool `yaml:"enabled"`
	Strict  bool `yaml:"strict"`
}

// TestCoverageConfig configures the coverage gate.
type TestCoverageConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Threshold CoverageThreshold `yaml:"threshold"`
}

// CoverageThreshold holds minimum percentages, each in [0, 100].
type CoverageThreshold struct {
	Line      float64 `yaml:"line"`
	Branch    float64 `yaml:"branch"`
	Function  float64 `yaml:"function"`
	Statement float64 `yaml:"statement"`
}

// CustomGateConfig defines a user-supplied command gate.
type CustomGateConfig struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	Parser  string `yaml:"parser,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the custom gate participates; absent means yes.
func (c CustomGateConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Report output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// ReportingConfig selects renderers and where file renderers write.
type ReportingConfig struct {
	Formats   []string `yaml:"formats"`
	OutputDir string   `yaml:"outputDir"`
}

// HistoryConfig controls the optional run-history store. DSN is a SQLite
// file path (relative to the project root) or a postgres:// URL.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// IsPostgres reports whether the DSN points at a Postgres server.
func (h HistoryConfig) IsPostgres() bool {
	return strings.HasPrefix(h.DSN, "postgres://") || strings.HasPrefix(h.DSN, "postgresql://")
}

const defaultCommandTimeout = 10 * time.Minute

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Gates: GatesConfig{
			ESLint:     ESLintConfig{Enabled: true, MaxErrors: 0, MaxWarnings: -1},
			Prettier:   ToggleConfig{Enabled: true},
			TypeScript: TypeScriptConfig{Enabled: true, Strict: true},
			TestCoverage: TestCoverageConfig{
				Enabled:   true,
				Threshold: CoverageThreshold{Line: 80, Branch: 80, Function: 80, Statement: 80},
			},
			OSVScanner:     ToggleConfig{Enabled: true},
			ESLintSecurity: ToggleConfig{Enabled: true},
		},
		Reporting: ReportingConfig{
			Formats:   []string{FormatTerminal},
			OutputDir: ".quality-gates",
		},
		History: HistoryConfig{
			DSN: ".quality-gates/history.db",
		},
		CommandTimeout: defaultCommandTimeout.String(),
	}
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string { return c.path }

// Digest returns the blake3 hex digest of the source file, or "".
func (c *Config) Digest() string { return c.digest }

// Timeout returns the per-command timeout, falling back to the default when
// the configured value does not parse.
func (c *Config) Timeout() time.Duration {
	return ParseDuration(c.CommandTimeout, defaultCommandTimeout)
}

// ParseDuration parses a duration string, falling back to a default.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
