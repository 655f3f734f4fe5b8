package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/localnerve/lxnotes/data"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders the report template with formatting helpers
type TemplateEngine struct {
	tmpl     *template.Template
	location *time.Location
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithLocation formats dates in loc instead of the local zone
func WithLocation(loc *time.Location) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.location = loc
	}
}

// WithTemplate replaces the embedded report template
func WithTemplate(content string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.tmpl = template.Must(template.New("report").Funcs(e.funcMap()).Parse(content))
	}
}

// NewTemplateEngine parses the embedded report template
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{location: time.Local}
	for _, opt := range opts {
		opt(e)
	}
	if e.tmpl == nil {
		e.tmpl = template.Must(template.New("report").Funcs(e.funcMap()).Parse(data.ReportTemplate))
	}
	return e
}

// RenderReport renders the full report document
func (e *TemplateEngine) RenderReport(report *Report) (string, error) {
	return e.execute("report", report)
}

// RenderNotesTable renders only the notes table, for email bodies
func (e *TemplateEngine) RenderNotesTable(report *Report) (string, error) {
	return e.execute("notesTable", report)
}

func (e *TemplateEngine) execute(name string, report *Report) (string, error) {
	if report == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "report is nil", nil)
	}
	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, name, report); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

func (e *TemplateEngine) funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":     func(t time.Time) string { return FormatDate(t.In(e.location)) },
		"formatDateTime": func(t time.Time) string { return FormatDateTime(t.In(e.location)) },
		"title":          titleCase,
		"label":          Label,
		"upper":          strings.ToUpper,
		"lower":          strings.ToLower,
		"join":           strings.Join,
		"truncate":       truncate,
		"default":        defaultFunc,
	}
}

// FormatDate formats a date the way reports print it
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Mon, Jan 2 2006")
}

// FormatDateTime formats a timestamp the way reports print it
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Mon, Jan 2 2006 3:04 PM")
}

// Label turns an enum value such as "very_high" into "Very High"
func Label(v any) string {
	return titleCase(strings.ReplaceAll(fmt.Sprint(v), "_", " "))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

func defaultFunc(def string, v any) string {
	s := fmt.Sprint(v)
	if v == nil || s == "" {
		return def
	}
	return s
}
