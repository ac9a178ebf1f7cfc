package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Parse(htmlSource))

type palette struct {
	Background, Foreground, Header, Card template.CSS
}

var themes = map[string]palette{
	"light": {Background: "#f5f5f5", Foreground: "#333", Header: "#28a745", Card: "#fff"},
	"dark":  {Background: "#1e1e1e", Foreground: "#e0e0e0", Header: "#0d47a1", Card: "#2a2a2a"},
	"blue":  {Background: "#f5f5f5", Foreground: "#333", Header: "#007bff", Card: "#fff"},
}

// HTML renders a self-contained HTML page.
type HTML struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

func (h *HTML) Info() action.Info {
	return action.Info{Version: "1.0.0", Author: "testgrid", Description: "Generates an HTML test report"}
}

func (h *HTML) Format() string { return "html" }

func (h *HTML) Inputs() []action.Field {
	return []action.Field{
		{Name: "title", Type: action.FieldText, Label: "Report title", Default: "Test report"},
		{Name: "include_details", Type: action.FieldCheckbox, Label: "Include test details", Default: true},
		{Name: "theme", Type: action.FieldSelect, Label: "Theme", Default: "light", Options: []string{"light", "dark", "blue"}},
		{Name: "notes", Type: action.FieldTextArea, Label: "Notes (Markdown)"},
	}
}

type htmlData struct {
	Title          string
	Theme          palette
	Generated      string
	Report         *model.Report
	Total          int
	Passed         int
	Failed         int
	Skipped        int
	SuccessRate    string
	IncludeDetails bool
	Notes          template.HTML
}

func (h *HTML) Generate(r *model.Report, cfg action.Config) (*reporter.Rendered, error) {
	if err := action.ValidateSchema("html", h.Inputs(), cfg); err != nil {
		return nil, err
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	ts := now()

	theme, ok := themes[cfg.StringOr("theme", "light")]
	if !ok {
		theme = themes["light"]
	}
	passed, failed, skipped := r.Counts()
	total := len(r.Results)
	rate := 0.0
	if total > 0 {
		rate = float64(passed) / float64(total) * 100
	}
	notes, err := markdown(cfg.String("notes"))
	if err != nil {
		return nil, err
	}

	data := htmlData{
		Title:          cfg.StringOr("title", "Test report"),
		Theme:          theme,
		Generated:      ts.Format("2006-01-02 15:04:05"),
		Report:         r,
		Total:          total,
		Passed:         passed,
		Failed:         failed,
		Skipped:        skipped,
		SuccessRate:    fmt.Sprintf("%.1f%%", rate),
		IncludeDetails: cfg.Bool("include_details", true),
		Notes:          notes,
	}
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return &reporter.Rendered{
		FileName:    fileName(r, ts, "html"),
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

var notesPolicy = bluemonday.UGCPolicy()

// markdown converts src to sanitized HTML.
func markdown(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render notes: %w", err)
	}
	return template.HTML(notesPolicy.SanitizeBytes(buf.Bytes())), nil
}

func fileName(r *model.Report, ts time.Time, ext string) string {
	return fmt.Sprintf("report_%s_%s.%s", r.ID, ts.Format("20060102_150405"), ext)
}
