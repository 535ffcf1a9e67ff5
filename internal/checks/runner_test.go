package checks

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// mockCmd records calls and returns configured results.
type mockCmd struct {
	calls   []mockCall
	results []mockResult
	callIdx int
	paths   map[string]string
}

type mockCall struct {
	Dir      string
	Command  string
	Deadline time.Time
}

type mockResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	// Block waits for the context to end and returns its error.
	Block bool
}

func (m *mockCmd) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	deadline, _ := ctx.Deadline()
	m.calls = append(m.calls, mockCall{Dir: dir, Command: command, Deadline: deadline})
	if m.callIdx >= len(m.results) {
		return "", "", 0, nil
	}
	r := m.results[m.callIdx]
	m.callIdx++
	if r.Block {
		<-ctx.Done()
		return r.Stdout, r.Stderr, -1, ctx.Err()
	}
	return r.Stdout, r.Stderr, r.ExitCode, r.Err
}

func (m *mockCmd) LookPath(name string) (string, error) {
	if p, ok := m.paths[name]; ok {
		return p, nil
	}
	return "", exec.ErrNotFound
}

func TestRunner_Run_HappyPath(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: "all good", ExitCode: 0},
		},
	}
	runner := NewRunner(mock, nil)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "lint",
		Command: "npm run lint",
		Parser:  "generic",
		Timeout: 30 * time.Second,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Errorf("expected passed=true, got false")
	}
	if result.CheckName != "lint" {
		t.Errorf("expected check_name=lint, got %q", result.CheckName)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit_code=0, got %d", result.ExitCode)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.calls))
	}
	if mock.calls[0].Dir != "/tmp/test" {
		t.Errorf("expected dir=/tmp/test, got %q", mock.calls[0].Dir)
	}
	if mock.calls[0].Command != "npm run lint" {
		t.Errorf("expected command=npm run lint, got %q", mock.calls[0].Command)
	}
}

func TestRunner_Run_FailedCheck(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: "errors found", ExitCode: 1},
		},
	}
	runner := NewRunner(mock, nil)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "lint",
		Command: "npm run lint",
		Parser:  "generic",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Errorf("expected passed=false, got true")
	}
	if result.ExitCode != 1 {
		t.Errorf("expected exit_code=1, got %d", result.ExitCode)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "errors found" {
		t.Errorf("expected output tail in errors, got %v", result.Errors)
	}
}

func TestRunner_Run_ParserCanFailZeroExit(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: `{"numTotalTests":2,"numPassedTests":1,"numFailedTests":1,"testResults":[]}`, ExitCode: 0},
		},
	}
	runner := NewRunner(mock, nil)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "unit",
		Command: "npx jest --json",
		Parser:  "jest",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Error("expected passed=false when the parser reports failures")
	}
}

func TestRunner_Run_UnknownParserFallsToGeneric(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: "output", ExitCode: 0},
		},
	}
	runner := NewRunner(mock, nil)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "custom",
		Command: "custom-check",
		Parser:  "unknown-parser",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Errorf("expected passed=true")
	}
	if result.Summary != "passed (exit code 0)" {
		t.Errorf("expected generic summary, got %q", result.Summary)
	}
}

func TestRunner_Run_CommandError(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Err: fmt.Errorf("connection refused")},
		},
	}
	runner := NewRunner(mock, nil)

	_, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "lint",
		Command: "npm run lint",
		Parser:  "generic",
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRunner_Run_Timeout(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{Stdout: "partial", Err: ErrTimeout},
		},
	}
	runner := NewRunner(mock, nil)

	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "slow",
		Command: "sleep 100",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed || !result.TimedOut {
		t.Errorf("expected timed out failure, got %+v", result)
	}
	if result.Summary != "timed out after 5s" {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
	if result.Stdout != "partial" {
		t.Errorf("expected partial stdout to be kept, got %q", result.Stdout)
	}
}

func TestRunner_Run_DefaultTimeout(t *testing.T) {
	mock := &mockCmd{
		results: []mockResult{
			{ExitCode: 0},
		},
	}
	runner := NewRunner(mock, nil)

	// Timeout = 0 should use default (2 minutes)
	before := time.Now()
	result, err := runner.Run(context.Background(), "/tmp/test", CheckConfig{
		Name:    "lint",
		Command: "npm run lint",
		Parser:  "generic",
		Timeout: 0,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Errorf("expected passed=true")
	}
	deadline := mock.calls[0].Deadline
	if deadline.Before(before.Add(defaultTimeout-time.Second)) || deadline.After(time.Now().Add(defaultTimeout)) {
		t.Errorf("deadline %v is not about %v from now", deadline, defaultTimeout)
	}
}

func TestRunner_Exec_DeadlineBecomesErrTimeout(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Block: true}}}
	runner := NewRunner(mock, nil)

	_, err := runner.Exec(context.Background(), "/tmp", "hang", 10*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRunner_Exec_ParentCancel(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Block: true}}}
	runner := NewRunner(mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Exec(ctx, "/tmp", "hang", time.Minute)
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestRunner_LookPath(t *testing.T) {
	runner := NewRunner(&mockCmd{paths: map[string]string{"osv-scanner": "/usr/local/bin/osv-scanner"}}, nil)
	if p, err := runner.LookPath("osv-scanner"); err != nil || p != "/usr/local/bin/osv-scanner" {
		t.Errorf("LookPath() = %q, %v", p, err)
	}
	if _, err := runner.LookPath("missing"); err == nil {
		t.Error("expected error for missing tool")
	}
}

func TestExecRunner_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e := &ExecRunner{}
	dir := t.TempDir()

	stdout, stderr, code, err := e.Run(context.Background(), dir, "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if strings.TrimSpace(stdout) != "out" || strings.TrimSpace(stderr) != "err" {
		t.Errorf("stdout=%q stderr=%q", stdout, stderr)
	}

	stdout, _, _, err = e.Run(context.Background(), dir, "pwd")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(stdout), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("pwd = %q, want %q", stdout, dir)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e := &ExecRunner{WaitDelay: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, code, err := e.Run(ctx, t.TempDir(), "exec sleep 5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if code != -1 {
		t.Errorf("exit code = %d, want -1", code)
	}
}
