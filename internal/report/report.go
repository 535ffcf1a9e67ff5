// Package report renders a gate.Report for people and machines.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lucasnoah/gateagent/internal/config"
	"github.com/lucasnoah/gateagent/internal/gate"
)

// Output file names inside the configured output directory.
const (
	JSONFile     = "gate-agent-report.json"
	HTMLFile     = "gate-agent-report.html"
	MarkdownFile = "gate-agent-report.md"
)

// Options says where renderers write.
type Options struct {
	ProjectRoot string
	// OutputDir is relative to ProjectRoot unless absolute.
	OutputDir string
	// Out receives the terminal report and the "written to" notices.
	Out io.Writer
}

func (o Options) dir() string {
	if filepath.IsAbs(o.OutputDir) {
		return o.OutputDir
	}
	return filepath.Join(o.ProjectRoot, o.OutputDir)
}

// Write renders rep in every requested format and returns the files it
// wrote. Rendering stops at the first failure.
func Write(formats []string, rep *gate.Report, opts Options) ([]string, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	var written []string
	for _, format := range formats {
		var (
			name   string
			render func(io.Writer, *gate.Report) error
		)
		switch format {
		case config.FormatTerminal:
			if err := Terminal(opts.Out, rep); err != nil {
				return written, fmt.Errorf("terminal report: %w", err)
			}
			continue
		case config.FormatJSON:
			name, render = JSONFile, JSON
		case config.FormatHTML:
			name, render = HTMLFile, HTML
		case config.FormatMarkdown:
			name, render = MarkdownFile, Markdown
		default:
			return written, fmt.Errorf("unknown report format %q", format)
		}

		path := filepath.Join(opts.dir(), name)
		if err := writeFile(path, rep, render); err != nil {
			return written, fmt.Errorf("%s report: %w", format, err)
		}
		fmt.Fprintf(opts.Out, "%s report written to: %s\n", formatLabel(format), path)
		written = append(written, path)
	}
	return written, nil
}

func formatLabel(format string) string {
	switch format {
	case config.FormatJSON:
		return "JSON"
	case config.FormatHTML:
		return "HTML"
	case config.FormatMarkdown:
		return "Markdown"
	}
	return format
}

func writeFile(path string, rep *gate.Report, render func(io.Writer, *gate.Report) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FormatDuration renders d as "123ms" below one second and "1.23s" above.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}
