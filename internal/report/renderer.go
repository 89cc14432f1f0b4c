package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer handles report template rendering
type Renderer struct {
	templates *template.Template
}

// NewRenderer creates a new template renderer
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"formatMoney":   FormatMoney,
		"formatMeters":  FormatMeters,
		"formatPercent": FormatPercent,
		"formatRate":    FormatRate,
		"formatDate":    formatDate,
		"truncate":      truncate,
		"isNegative":    func(d decimal.Decimal) bool { return d.IsNegative() },
		"add":           func(a, b int) int { return a + b },
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Renderer{templates: tmpl}, nil
}

// RenderSummary renders the summary report to HTML
func (r *Renderer) RenderSummary(w io.Writer, report *SummaryReport) error {
	return r.templates.ExecuteTemplate(w, "summary.html", report)
}

// formatDate formats a time as YYYY-MM-DD HH:MM
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04")
}
