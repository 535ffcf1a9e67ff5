package checks

import (
	"fmt"
	"strings"
)

// GenericParser is the fallback parser that captures exit code and actual output.
type GenericParser struct{}

// maxOutputLen caps how much stdout/stderr the generic parser retains in findings.
const maxOutputLen = 8000

func (p *GenericParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	passed := exitCode == 0
	summary := fmt.Sprintf("exit code %d, stdout=%d bytes, stderr=%d bytes", exitCode, len(stdout), len(stderr))
	if passed {
		summary = "passed (exit code 0)"
	}

	findings := ""
	var errs []string
	if !passed {
		combined := stdout
		if stderr != "" {
			if combined != "" {
				combined += "\n"
			}
			combined += stderr
		}
		errs = tailLines(combined, MaxListed)
		// Keep the tail; error summaries and tracebacks come last.
		if len(combined) > maxOutputLen {
			combined = "…(truncated)\n" + combined[len(combined)-maxOutputLen:]
		}
		findings = combined
	}

	return ParseResult{
		Passed:   passed,
		Summary:  summary,
		Errors:   errs,
		Findings: findings,
	}
}

// tailLines returns the last n non-blank lines of s.
func tailLines(s string, n int) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
