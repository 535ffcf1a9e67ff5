package checks

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TestRunParser parses jest/vitest JSON reporter output.
type TestRunParser struct{}

// TestRun is the subset of the jest/vitest JSON report gates care about.
type TestRun struct {
	NumTotalTests   int           `json:"numTotalTests"`
	NumPassedTests  int           `json:"numPassedTests"`
	NumFailedTests  int           `json:"numFailedTests"`
	NumPendingTests int           `json:"numPendingTests"`
	TestResults     []suiteResult `json:"testResults"`
}

type suiteResult struct {
	Name             string            `json:"name"`
	Status           string            `json:"status"` // "passed" or "failed"
	AssertionResults []assertionResult `json:"assertionResults"`
}

type assertionResult struct {
	FullName        string   `json:"fullName"`
	Status          string   `json:"status"` // "passed", "failed"
	FailureMessages []string `json:"failureMessages"`
}

// Failures formats every failed assertion as "suite > test: first message".
func (r *TestRun) Failures() []string {
	var out []string
	for _, suite := range r.TestResults {
		for _, a := range suite.AssertionResults {
			if a.Status != "failed" {
				continue
			}
			msg := ""
			if len(a.FailureMessages) > 0 {
				msg, _, _ = strings.Cut(a.FailureMessages[0], "\n")
			}
			out = append(out, fmt.Sprintf("%s > %s: %s", suite.Name, a.FullName, msg))
		}
	}
	return out
}

// DecodeTestRun decodes a jest/vitest JSON report. Reporters often print
// banners first, so decoding starts at the first '{'.
func DecodeTestRun(stdout string) (*TestRun, error) {
	start := strings.Index(stdout, "{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in test output")
	}
	var run TestRun
	if err := json.NewDecoder(strings.NewReader(stdout[start:])).Decode(&run); err != nil {
		return nil, fmt.Errorf("decoding test report: %w", err)
	}
	return &run, nil
}

type testRunResult struct {
	Total   int      `json:"total"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Failing []string `json:"failing,omitempty"`
}

func (p *TestRunParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	run, err := DecodeTestRun(stdout)
	if err != nil {
		return ParseResult{
			Passed:  exitCode == 0,
			Summary: fmt.Sprintf("exit code %d (could not parse test JSON)", exitCode),
			Findings: testRunResult{
				Total:  -1,
				Failed: -1,
			},
		}
	}

	failures := run.Failures()
	result := testRunResult{
		Total:   run.NumTotalTests,
		Passed:  run.NumPassedTests,
		Failed:  run.NumFailedTests,
		Skipped: run.NumPendingTests,
		Failing: failures,
	}

	return ParseResult{
		Passed:   exitCode == 0 && result.Failed == 0,
		Summary:  fmt.Sprintf("%d passed, %d failed, %d skipped out of %d", result.Passed, result.Failed, result.Skipped, result.Total),
		Errors:   failures,
		Findings: result,
	}
}
