package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/lucasnoah/gateagent/internal/gate"
)

// Markdown writes rep as a GitHub-flavoured summary table followed by the
// findings of every gate that did not pass.
func Markdown(w io.Writer, rep *gate.Report) error {
	var b strings.Builder

	verdict := "✅ All quality gates passed"
	if !rep.Success {
		verdict = "❌ Quality gates failed"
	}
	fmt.Fprintf(&b, "## Quality Gates Report\n\n**%s** (%d passed, %d failed, %d skipped, %d errors in %s)\n\n",
		verdict, rep.Summary.Passed, rep.Summary.Failed, rep.Summary.Skipped, rep.Summary.Errors,
		FormatDuration(rep.Summary.TotalDuration))

	b.WriteString("| Gate | Status | Message | Duration |\n")
	b.WriteString("|------|--------|---------|----------|\n")
	for _, r := range rep.Results {
		fmt.Fprintf(&b, "| %s | %s %s | %s | %s |\n",
			cell(r.Name), Symbol(r.Status), r.Status, cell(r.Message), FormatDuration(r.Duration))
	}

	for _, r := range rep.Results {
		if r.Status == gate.StatusPassed || r.Status == gate.StatusSkipped {
			continue
		}
		if len(r.Errors) == 0 && len(r.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n<details><summary>%s</summary>\n\n", cell(r.Name))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- %s\n", inline(e))
		}
		for _, wn := range r.Warnings {
			fmt.Fprintf(&b, "- ⚠️ %s\n", inline(wn))
		}
		b.WriteString("\n</details>\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func inline(s string) string {
	return "`" + strings.ReplaceAll(strings.TrimSpace(s), "`", "'") + "`"
}
