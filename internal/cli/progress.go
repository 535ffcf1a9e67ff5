package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/lucasnoah/gateagent/internal/gate"
	"github.com/lucasnoah/gateagent/internal/report"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progress draws one line per gate as the run advances.
type progress struct {
	w     io.Writer
	muted lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
}

func newProgress(w io.Writer) *progress {
	r := lipgloss.NewRenderer(w)
	return &progress{
		w:     w,
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (p *progress) GateStarted(name string) {
	fmt.Fprintf(p.w, "\r\x1b[K%s", p.muted.Render("… "+name))
}

func (p *progress) GateFinished(r gate.Result) {
	style := p.fail
	switch r.Status {
	case gate.StatusPassed:
		style = p.ok
	case gate.StatusSkipped:
		style = p.muted
	}
	fmt.Fprintf(p.w, "\r\x1b[K%s %s %s\n", style.Render(report.Symbol(r.Status)), r.Name,
		p.muted.Render("("+report.FormatDuration(r.Duration)+")"))
}
