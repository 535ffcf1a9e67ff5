package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/gateagent/internal/config"
)

var (
	initForceFlag       bool
	initInteractiveFlag bool
)

// askTemplateOptions collects starter-config choices. Tests replace it.
var askTemplateOptions = promptTemplateOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter gate-agent.yml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		existing, err := config.Find(root)
		switch {
		case err == nil && !initForceFlag:
			return &exitError{code: 1, err: fmt.Errorf("configuration file already exists at: %s", existing)}
		case err != nil && !errors.Is(err, config.ErrNotFound):
			return toolError(err)
		}

		opts := config.DefaultTemplateOptions()
		if initInteractiveFlag {
			if !isTerminal(os.Stdin) {
				return toolError(errors.New("--interactive needs a terminal on stdin"))
			}
			if opts, err = askTemplateOptions(opts); err != nil {
				return toolError(err)
			}
		}

		data, err := config.RenderTemplate(opts)
		if err != nil {
			return toolError(err)
		}
		target := filepath.Join(root, config.FileNames[0])
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return toolError(fmt.Errorf("write %s: %w", target, err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created %s at: %s\n", config.FileNames[0], target)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintf(out, "1. Edit %s to configure your quality gates\n", config.FileNames[0])
		fmt.Fprintln(out, "2. Run \"gate-agent run\" to execute quality gates")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForceFlag, "force", false, "overwrite or shadow an existing configuration")
	initCmd.Flags().BoolVarP(&initInteractiveFlag, "interactive", "i", false, "choose gates and formats interactively")
}

const (
	optESLint         = "eslint"
	optPrettier       = "prettier"
	optTypeScript     = "typescript"
	optTestCoverage   = "testCoverage"
	optOSVScanner     = "osvScanner"
	optESLintSecurity = "eslintSecurity"
)

func promptTemplateOptions(defaults config.TemplateOptions) (config.TemplateOptions, error) {
	opts := defaults
	selected := selectedGates(defaults)
	formats := slices.Clone(defaults.Formats)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Which gates should run?").
				Options(
					huh.NewOption("ESLint", optESLint),
					huh.NewOption("Prettier", optPrettier),
					huh.NewOption("TypeScript", optTypeScript),
					huh.NewOption("Test coverage", optTestCoverage),
					huh.NewOption("osv-scanner", optOSVScanner),
					huh.NewOption("ESLint security rules", optESLintSecurity),
				).
				Value(&selected),
			huh.NewMultiSelect[string]().
				Title("Report formats").
				Options(
					huh.NewOption("Terminal", config.FormatTerminal),
					huh.NewOption("JSON", config.FormatJSON),
					huh.NewOption("HTML", config.FormatHTML),
					huh.NewOption("Markdown", config.FormatMarkdown),
				).
				Value(&formats),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Record run history?").
				Value(&opts.History),
			huh.NewConfirm().
				Title("Stop at the first failing gate?").
				Value(&opts.FailFast),
		),
	)
	if err := form.Run(); err != nil {
		return defaults, fmt.Errorf("prompt failed: %w", err)
	}

	applySelectedGates(&opts, selected)
	opts.Formats = formats
	return opts, nil
}

func selectedGates(o config.TemplateOptions) []string {
	var out []string
	for name, on := range map[string]bool{
		optESLint:         o.ESLint,
		optPrettier:       o.Prettier,
		optTypeScript:     o.TypeScript,
		optTestCoverage:   o.TestCoverage,
		optOSVScanner:     o.OSVScanner,
		optESLintSecurity: o.ESLintSecurity,
	} {
		if on {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func applySelectedGates(o *config.TemplateOptions, selected []string) {
	on := func(name string) bool { return slices.Contains(selected, name) }
	o.ESLint = on(optESLint)
	o.Prettier = on(optPrettier)
	o.TypeScript = on(optTypeScript)
	o.TestCoverage = on(optTestCoverage)
	o.OSVScanner = on(optOSVScanner)
	o.ESLintSecurity = on(optESLintSecurity)
}
