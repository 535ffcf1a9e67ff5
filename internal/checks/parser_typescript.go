package checks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TypeScriptParser parses tsc --noEmit output.
type TypeScriptParser struct{}

type tsFinding struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tsResult struct {
	Errors   int         `json:"errors"`
	Findings []tsFinding `json:"findings"`
}

var (
	// tsc output format: src/auth.ts(42,5): error TS2345: Argument of type...
	tscLineRe  = regexp.MustCompile(`^(.+)\((\d+),(\d+)\):\s+error\s+(TS\d+):\s+(.+)$`)
	tscFoundRe = regexp.MustCompile(`Found (\d+) error`)
)

// TypeScriptErrors returns tsc's diagnostic lines and the error count. The
// count comes from the trailing "Found N errors" line when tsc prints one.
func TypeScriptErrors(stdout string) (lines []string, count int) {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == "" || strings.Contains(line, "Found ") || strings.Contains(line, "Watching for") {
			continue
		}
		lines = append(lines, line)
	}
	count = len(lines)
	if m := tscFoundRe.FindStringSubmatch(stdout); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			count = n
		}
	}
	return lines, count
}

func (p *TypeScriptParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	var result tsResult

	for _, line := range strings.Split(stdout, "\n") {
		m := tscLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		result.Findings = append(result.Findings, tsFinding{
			File:    m[1],
			Line:    lineNum,
			Column:  col,
			Code:    m[4],
			Message: m[5],
		})
	}

	lines, count := TypeScriptErrors(stdout)
	result.Errors = count

	passed := exitCode == 0
	summary := fmt.Sprintf("%d type error(s) found", count)
	if passed {
		summary = "No type errors found"
		lines = nil
	}

	return ParseResult{
		Passed:   passed,
		Summary:  summary,
		Errors:   lines,
		Findings: result,
	}
}
