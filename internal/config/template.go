package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed template.yml
var templateSrc string

var starter = template.Must(template.New("gate-agent.yml").Option("missingkey=error").Parse(templateSrc))

// TemplateOptions selects what the starter config turns on.
type TemplateOptions struct {
	ESLint         bool
	Prettier       bool
	TypeScript     bool
	TestCoverage   bool
	OSVScanner     bool
	ESLintSecurity bool
	Formats        []string
	History        bool
	FailFast       bool
}

// DefaultTemplateOptions mirrors Default.
func DefaultTemplateOptions() TemplateOptions {
	return TemplateOptions{
		ESLint:         true,
		Prettier:       true,
		TypeScript:     true,
		TestCoverage:   true,
		OSVScanner:     true,
		ESLintSecurity: true,
		Formats:        []string{FormatTerminal},
	}
}

// Template returns the commented starter config written by init.
func Template() []byte {
	out, err := RenderTemplate(DefaultTemplateOptions())
	if err != nil {
		panic(err)
	}
	return out
}

// RenderTemplate renders the starter config with the given selections.
func RenderTemplate(opts TemplateOptions) ([]byte, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = []string{FormatTerminal}
	}
	var buf bytes.Buffer
	if err := starter.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("rendering config template: %w", err)
	}
	return buf.Bytes(), nil
}
