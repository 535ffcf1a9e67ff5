package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lucasnoah/gateagent/internal/config"
	"github.com/lucasnoah/gateagent/internal/gate"
)

func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// writeProject creates a project directory holding gate-agent.yml.
func writeProject(t *testing.T, yml string) string {
	t.Helper()
	dir := t.TempDir()
	if yml != "" {
		if err := os.WriteFile(filepath.Join(dir, "gate-agent.yml"), []byte(yml), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func code(err error) int {
	return exitCode(io.Discard, err)
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "gate-agent version test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sub := range []string{"run", "init", "config", "gates", "history", "serve", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestConfigSubcommands(t *testing.T) {
	for _, sub := range []string{"validate", "show"} {
		out, err := executeCommand("config", sub, "--help")
		if err != nil {
			t.Errorf("config %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("config %s --help produced no output", sub)
		}
	}
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	if got := exitCode(&buf, nil); got != 0 {
		t.Errorf("nil error: got %d", got)
	}
	if got := exitCode(&buf, &exitError{code: 1}); got != 1 || buf.Len() != 0 {
		t.Errorf("silent exit: got %d, printed %q", got, buf.String())
	}
	if got := exitCode(&buf, toolError(errors.New("boom"))); got != 2 || !strings.Contains(buf.String(), "Error: boom") {
		t.Errorf("tool error: got %d, printed %q", got, buf.String())
	}
	if got := exitCode(io.Discard, errors.New("unknown flag")); got != 2 {
		t.Errorf("plain error: got %d, want 2", got)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := executeCommand("version", "--log-level", "loud")
	if code(err) != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
}

func TestRun_NoConfig(t *testing.T) {
	dir := writeProject(t, "")
	_, err := executeCommand("run", "--cwd", dir)
	if code(err) != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	if !strings.Contains(err.Error(), "gate-agent init") {
		t.Errorf("expected init hint, got %v", err)
	}
}

func TestRun_MissingProjectDir(t *testing.T) {
	_, err := executeCommand("run", "--cwd", filepath.Join(t.TempDir(), "nope"))
	if code(err) != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := writeProject(t, "gates:\n  eslint:\n    maxErrors: -3\n")
	_, err := executeCommand("run", "--cwd", dir)
	if code(err) != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
}

func TestRun_EmptyProjectSkipsEverything(t *testing.T) {
	dir := writeProject(t, "reporting:\n  formats: [terminal, json]\n  outputDir: out\n")
	out, err := executeCommand("run", "--cwd", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Running quality gates from: " + dir,
		"Using config: " + filepath.Join(dir, "gate-agent.yml"),
		"Quality Gates Report",
		"○ ESLint - SKIPPED",
		"○ OSV Scanner - SKIPPED",
		"✓ All quality gates passed!",
		"JSON report written to: " + filepath.Join(dir, "out", "gate-agent-report.json"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "gate-agent-report.json")); err != nil {
		t.Errorf("json report not written: %v", err)
	}
}

const customGates = `
gates:
  custom:
    - name: ok
      command: echo fine
    - name: broken
      command: echo boom; exit 1
    - name: after
      command: echo late
`

func TestRun_CustomGateFailureExitsOne(t *testing.T) {
	requireShell(t)
	dir := writeProject(t, customGates)
	out, err := executeCommand("run", "--cwd", dir)
	if code(err) != 1 {
		t.Fatalf("expected exit code 1, got %v\n%s", err, out)
	}
	for _, want := range []string{"✓ ok - PASSED", "✗ broken - FAILED", "• boom", "✓ after - PASSED", "✗ Quality gates failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_FailFastFlag(t *testing.T) {
	requireShell(t)
	dir := writeProject(t, customGates)
	out, err := executeCommand("run", "--cwd", dir, "--fail-fast")
	if code(err) != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if !strings.Contains(out, "broken - FAILED") {
		t.Errorf("expected the failing gate in output:\n%s", out)
	}
	if strings.Contains(out, "after") {
		t.Errorf("gate after the failure should not run:\n%s", out)
	}
}

func TestRun_FormatOverride(t *testing.T) {
	dir := writeProject(t, "gates: {}\n")
	out, err := executeCommand("run", "--cwd", dir, "--format", "markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "Quality Gates Report\n") {
		t.Errorf("terminal report should be replaced by --format:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".quality-gates", "gate-agent-report.md")); err != nil {
		t.Errorf("markdown report not written: %v", err)
	}

	_, err = executeCommand("run", "--cwd", dir, "--format", "pdf")
	if code(err) != 2 {
		t.Errorf("unknown format: expected exit code 2, got %v", err)
	}
}

func TestRunAndHistory(t *testing.T) {
	requireShell(t)
	dir := writeProject(t, `
gates:
  custom:
    - name: ok
      command: "true"
history:
  enabled: true
  dsn: state/history.db
`)
	out, err := executeCommand("history", "--cwd", dir)
	if err != nil {
		t.Fatalf("history before any run: %v", err)
	}
	if !strings.Contains(out, "No gate runs recorded.") {
		t.Errorf("unexpected output: %s", out)
	}

	for i := 0; i < 2; i++ {
		if _, err := executeCommand("run", "--cwd", dir); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if _, err := executeCommand("run", "--cwd", dir, "--no-history"); err != nil {
		t.Fatalf("run --no-history: %v", err)
	}

	out, err = executeCommand("history", "--cwd", dir)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	ids := regexp.MustCompile(`(?m)^([0-9a-f-]{36})\s`).FindAllStringSubmatch(out, -1)
	if len(ids) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d:\n%s", len(ids), out)
	}
	if !strings.Contains(out, "PASS") {
		t.Errorf("expected PASS verdict:\n%s", out)
	}

	out, err = executeCommand("history", "--cwd", dir, "--run", ids[0][1])
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	if !strings.Contains(out, "Run:       "+ids[0][1]) || !strings.Contains(out, "✓ ok") || !strings.Contains(out, "○ ESLint") {
		t.Errorf("unexpected run detail:\n%s", out)
	}

	out, err = executeCommand("history", "--cwd", dir, "--stats")
	if err != nil {
		t.Fatalf("history --stats: %v", err)
	}
	if !regexp.MustCompile(`(?m)^ok\s+2\s+2\s+0\s+0\s+0\s+0\.0%`).MatchString(out) {
		t.Errorf("unexpected stats:\n%s", out)
	}

	out, err = executeCommand("history", "--cwd", dir, "--prune", "1")
	if err != nil {
		t.Fatalf("history --prune: %v", err)
	}
	if !strings.Contains(out, "Pruned 1 run(s).") {
		t.Errorf("unexpected prune output: %s", out)
	}

	_, err = executeCommand("history", "--cwd", dir, "--run", "missing")
	if code(err) != 2 {
		t.Errorf("unknown run: expected exit code 2, got %v", err)
	}

	_, err = executeCommand("history", "--cwd", dir, "--prune=-1")
	if code(err) != 2 {
		t.Errorf("negative prune: expected exit code 2, got %v", err)
	}

	out, err = executeCommand("history", "--cwd", dir, "--reset")
	if err != nil {
		t.Fatalf("history --reset: %v", err)
	}
	if !strings.Contains(out, "History cleared.") {
		t.Errorf("unexpected reset output: %s", out)
	}
	out, err = executeCommand("history", "--cwd", dir)
	if err != nil {
		t.Fatalf("history after reset: %v", err)
	}
	if !strings.Contains(out, "No gate runs recorded.") {
		t.Errorf("expected empty history after reset:\n%s", out)
	}
}

func TestInit(t *testing.T) {
	dir := writeProject(t, "")
	out, err := executeCommand("init", "--cwd", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	path := filepath.Join(dir, "gate-agent.yml")
	if !strings.Contains(out, "Created gate-agent.yml at: "+path) {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("starter config does not load: %v", err)
	}

	_, err = executeCommand("init", "--cwd", dir)
	if code(err) != 1 || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second init: expected exit code 1, got %v", err)
	}

	if _, err := executeCommand("init", "--cwd", dir, "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestInit_RefusesConfigInParent(t *testing.T) {
	parent := writeProject(t, "gates: {}\n")
	child := filepath.Join(parent, "pkg")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := executeCommand("init", "--cwd", child)
	if code(err) != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
}

func TestInit_InteractiveNeedsTerminal(t *testing.T) {
	called := false
	orig := askTemplateOptions
	askTemplateOptions = func(o config.TemplateOptions) (config.TemplateOptions, error) {
		called = true
		return o, nil
	}
	t.Cleanup(func() { askTemplateOptions = orig })

	if isTerminal(os.Stdin) {
		t.Skip("stdin is a terminal")
	}
	dir := writeProject(t, "")
	_, err := executeCommand("init", "--cwd", dir, "--interactive")
	if code(err) != 2 {
		t.Fatalf("expected exit code 2 without a terminal, got %v", err)
	}
	if called {
		t.Error("prompt should not run without a terminal")
	}
}

func TestSelectedGates(t *testing.T) {
	opts := config.DefaultTemplateOptions()
	opts.Prettier = false
	opts.OSVScanner = false

	selected := selectedGates(opts)
	want := []string{optESLint, optESLintSecurity, optTestCoverage, optTypeScript}
	if strings.Join(selected, ",") != strings.Join(want, ",") {
		t.Errorf("selectedGates = %v, want %v", selected, want)
	}

	var back config.TemplateOptions
	applySelectedGates(&back, selected)
	if back.ESLint != true || back.Prettier != false || back.OSVScanner != false || back.TypeScript != true {
		t.Errorf("applySelectedGates = %+v", back)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := writeProject(t, "gates:\n  eslint:\n    enabled: true\n")
	out, err := executeCommand("config", "validate", "--cwd", dir)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("unexpected output: %s", out)
	}

	bad := writeProject(t, "reporting:\n  formats: [pdf]\n")
	out, err = executeCommand("config", "validate", "--cwd", bad)
	if code(err) != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if !strings.Contains(out, "Validation errors:") || !strings.Contains(out, "formats") {
		t.Errorf("unexpected output: %s", out)
	}

	_, err = executeCommand("config", "validate", "--cwd", writeProject(t, ""))
	if code(err) != 2 {
		t.Errorf("missing config: expected exit code 2, got %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	out, err := executeCommand("config", "show", "--cwd", writeProject(t, ""))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "showing defaults") || !strings.Contains(out, "maxWarnings: -1") {
		t.Errorf("unexpected output: %s", out)
	}

	dir := writeProject(t, "failFast: true\n")
	out, err = executeCommand("config", "show", "--cwd", dir)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "failFast: true") || !strings.Contains(out, filepath.Join(dir, "gate-agent.yml")) {
		t.Errorf("unexpected output: %s", out)
	}
	out, err = executeCommand("config", "show", "--schema")
	if err != nil {
		t.Fatalf("show --schema: %v", err)
	}
	if out != string(config.Schema()) {
		t.Errorf("expected the embedded schema, got: %s", out)
	}
}

func TestGatesCommand(t *testing.T) {
	dir := writeProject(t, `
failFast: true
gates:
  prettier:
    enabled: false
  custom:
    - name: audit
      command: npm audit
    - name: manual
      command: "true"
      enabled: false
`)
	out, err := executeCommand("gates", "--cwd", dir)
	if err != nil {
		t.Fatalf("gates: %v", err)
	}
	for _, want := range []*regexp.Regexp{
		regexp.MustCompile(`(?m)^ESLint\s+built-in\s+enabled$`),
		regexp.MustCompile(`(?m)^Prettier\s+built-in\s+disabled$`),
		regexp.MustCompile(`(?m)^audit\s+custom\s+enabled$`),
		regexp.MustCompile(`(?m)^manual\s+custom\s+disabled$`),
		regexp.MustCompile(`fail-fast: on`),
	} {
		if !want.MatchString(out) {
			t.Errorf("output does not match %s:\n%s", want, out)
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf)
	p.GateStarted("eslint")
	p.GateFinished(gate.Result{Name: "eslint", Status: gate.StatusFailed})
	out := buf.String()
	if !strings.Contains(out, "… eslint") || !strings.Contains(out, "✗ eslint (0ms)\n") {
		t.Errorf("unexpected progress output: %q", out)
	}
}
