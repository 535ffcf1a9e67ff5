package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/gateagent/internal/gate"
)

type styles struct {
	bold, muted, green, red, yellow lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		bold:   r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
		green:  r.NewStyle().Foreground(lipgloss.Color("2")),
		red:    r.NewStyle().Foreground(lipgloss.Color("1")),
		yellow: r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (s styles) status(st gate.Status) lipgloss.Style {
	switch st {
	case gate.StatusPassed:
		return s.green
	case gate.StatusSkipped:
		return s.yellow
	default:
		return s.red
	}
}

// Symbol is the one-character marker for a status.
func Symbol(st gate.Status) string {
	switch st {
	case gate.StatusPassed:
		return "✓"
	case gate.StatusFailed:
		return "✗"
	case gate.StatusSkipped:
		return "○"
	default:
		return "!"
	}
}

// Terminal writes the human-readable report. Colour is used only when w is
// a terminal that supports it.
func Terminal(w io.Writer, rep *gate.Report) error {
	s := newStyles(w)
	rule := s.muted.Render(strings.Repeat("─", 80))

	var b strings.Builder
	b.WriteString("\n" + s.bold.Render("Quality Gates Report") + "\n")
	b.WriteString(rule + "\n\n")

	for _, r := range rep.Results {
		st := s.status(r.Status)
		fmt.Fprintf(&b, "%s %s - %s\n", st.Render(Symbol(r.Status)), s.bold.Render(r.Name), st.Render(strings.ToUpper(string(r.Status))))
		if r.Message != "" {
			b.WriteString("  " + s.muted.Render(r.Message) + "\n")
		}
		if len(r.Errors) > 0 {
			b.WriteString(s.red.Render("  Errors:") + "\n")
			for _, e := range r.Errors {
				b.WriteString(s.red.Render("    • "+e) + "\n")
			}
		}
		if len(r.Warnings) > 0 {
			b.WriteString(s.yellow.Render("  Warnings:") + "\n")
			for _, w := range r.Warnings {
				b.WriteString(s.yellow.Render("    • "+w) + "\n")
			}
		}
		if len(r.Details) > 0 {
			data, err := json.MarshalIndent(r.Details, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding details for %s: %w", r.Name, err)
			}
			b.WriteString(s.muted.Render("  Details:") + "\n")
			for _, line := range strings.Split(string(data), "\n") {
				b.WriteString(s.muted.Render("    "+line) + "\n")
			}
		}
		b.WriteString("\n")
	}

	sum := rep.Summary
	b.WriteString(rule + "\n")
	b.WriteString("\n" + s.bold.Render("Summary:") + "\n")
	fmt.Fprintf(&b, "  Total gates: %d\n", sum.Total)
	fmt.Fprintf(&b, "  %s: %d\n", s.green.Render("Passed"), sum.Passed)
	fmt.Fprintf(&b, "  %s: %d\n", s.red.Render("Failed"), sum.Failed)
	fmt.Fprintf(&b, "  %s: %d\n", s.yellow.Render("Skipped"), sum.Skipped)
	fmt.Fprintf(&b, "  %s: %d\n", s.red.Render("Errors"), sum.Errors)
	fmt.Fprintf(&b, "  Duration: %s\n\n", FormatDuration(sum.TotalDuration))

	if rep.Success {
		b.WriteString(s.green.Bold(true).Render("✓ All quality gates passed!") + "\n\n")
	} else {
		b.WriteString(s.red.Bold(true).Render("✗ Quality gates failed") + "\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
