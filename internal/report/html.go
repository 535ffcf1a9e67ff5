package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/lucasnoah/gateagent/internal/gate"
)

//go:embed templates
var templateFS embed.FS

var funcMap = template.FuncMap{
	"statusClass": func(s gate.Status) string {
		return "status status-" + string(s)
	},
	"upper": func(s gate.Status) string {
		return strings.ToUpper(string(s))
	},
	"duration": FormatDuration,
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("%.2fs", d.Seconds())
	},
}

var htmlTmpl = mustParseTmpl("report.html")

func mustParseTmpl(names ...string) *template.Template {
	patterns := make([]string, len(names))
	for i, n := range names {
		patterns[i] = "templates/" + n
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, patterns...))
}

// HTML writes a self-contained HTML dashboard of rep.
func HTML(w io.Writer, rep *gate.Report) error {
	return htmlTmpl.ExecuteTemplate(w, "report.html", rep)
}
