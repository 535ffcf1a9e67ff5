package checks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ESLintParser parses ESLint JSON output.
type ESLintParser struct{}

// ESLintFile is one entry of `eslint --format json` output.
type ESLintFile struct {
	FilePath     string          `json:"filePath"`
	Messages     []ESLintMessage `json:"messages"`
	ErrorCount   int             `json:"errorCount"`
	WarningCount int             `json:"warningCount"`
}

// ESLintMessage is a single lint finding.
type ESLintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"` // 1=warning, 2=error
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Format renders the message as file:line:col - message (rule).
func (m ESLintMessage) Format(file string) string {
	rule := m.RuleID
	if rule == "" {
		rule = "unknown"
	}
	return fmt.Sprintf("%s:%d:%d - %s (%s)", file, m.Line, m.Column, m.Message, rule)
}

var errNotESLintJSON = errors.New("output is not an ESLint JSON report")

// DecodeESLint decodes ESLint's JSON formatter output.
func DecodeESLint(stdout string) ([]ESLintFile, error) {
	var files []ESLintFile
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &files); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotESLintJSON, err)
	}
	if files == nil {
		return nil, errNotESLintJSON
	}
	return files, nil
}

// ESLintSummary is the tally of an ESLint run.
type ESLintSummary struct {
	Errors       int      `json:"errors"`
	Warnings     int      `json:"warnings"`
	ErrorLines   []string `json:"-"`
	WarningLines []string `json:"-"`
}

// SummarizeESLint totals the per-file counts and formats every message,
// keeping only those whose rule satisfies keep (nil keeps all).
func SummarizeESLint(files []ESLintFile, keep func(rule string) bool) ESLintSummary {
	var s ESLintSummary
	for _, f := range files {
		if keep == nil {
			s.Errors += f.ErrorCount
			s.Warnings += f.WarningCount
		}
		for _, m := range f.Messages {
			if keep != nil && !keep(m.RuleID) {
				continue
			}
			switch m.Severity {
			case 2:
				s.ErrorLines = append(s.ErrorLines, m.Format(f.FilePath))
				if keep != nil {
					s.Errors++
				}
			case 1:
				s.WarningLines = append(s.WarningLines, m.Format(f.FilePath))
				if keep != nil {
					s.Warnings++
				}
			}
		}
	}
	return s
}

func (p *ESLintParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	files, err := DecodeESLint(stdout)
	if err != nil {
		return ParseResult{
			Passed:  exitCode == 0,
			Summary: fmt.Sprintf("exit code %d (could not parse ESLint JSON)", exitCode),
			Findings: ESLintSummary{
				Errors: -1,
			},
		}
	}

	s := SummarizeESLint(files, nil)
	return ParseResult{
		Passed:   s.Errors == 0,
		Summary:  fmt.Sprintf("%d error(s), %d warning(s)", s.Errors, s.Warnings),
		Errors:   s.ErrorLines,
		Warnings: s.WarningLines,
		Findings: s,
	}
}
