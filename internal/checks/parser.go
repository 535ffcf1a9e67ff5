package checks

import "sort"

// ParseResult holds the normalized output from a parser.
type ParseResult struct {
	Passed   bool     `json:"passed"`
	Summary  string   `json:"summary"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Findings any      `json:"findings"`
}

// Parser converts raw command output into a structured ParseResult.
type Parser interface {
	Parse(stdout string, stderr string, exitCode int) ParseResult
}

// MaxListed is how many individual findings a gate result lists.
const MaxListed = 10

// Truncate returns at most n leading entries of list.
func Truncate(list []string, n int) []string {
	if n < 0 || len(list) <= n {
		return list
	}
	return list[:n]
}

// newParsers builds the parser registry shared by every Runner.
func newParsers() map[string]Parser {
	tests := &TestRunParser{}
	return map[string]Parser{
		"eslint":     &ESLintParser{},
		"prettier":   &PrettierParser{},
		"typescript": &TypeScriptParser{},
		"jest":       tests,
		"vitest":     tests,
		"osv":        &OSVParser{},
		"generic":    &GenericParser{},
	}
}

// ParserNames lists the parsers a custom check may name, sorted.
func ParserNames() []string {
	parsers := newParsers()
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
