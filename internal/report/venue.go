package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"example.com/ticketsales/internal/domain"
)

//go:embed templates/page.html.tmpl
var pageSource string

//go:embed templates/summary.md.tmpl
var summarySource string

//go:embed templates/details.md.tmpl
var detailsSource string

//go:embed templates/chart.svg.tmpl
var chartSource string

type RendererConfig struct {
	// Title appears in the header and the chart.
	Title string
	// NamePrefix is stripped from event names for display.
	NamePrefix string
	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// Renderer builds a self-contained HTML sales report for one venue.
type Renderer struct {
	title      string
	namePrefix string
	now        func() time.Time

	md      goldmark.Markdown
	page    *template.Template
	summary *texttemplate.Template
	details *texttemplate.Template
	chart   *texttemplate.Template
}

func NewRenderer(cfg RendererConfig) *Renderer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	r := &Renderer{title: cfg.Title, namePrefix: cfg.NamePrefix, now: now}

	funcs := texttemplate.FuncMap{"cell": escapeCell, "display": r.displayName}
	r.md = goldmark.New(goldmark.WithExtensions(extension.GFM))
	r.page = template.Must(template.New("page").Parse(pageSource))
	r.summary = texttemplate.Must(texttemplate.New("summary").Funcs(funcs).Parse(summarySource))
	r.details = texttemplate.Must(texttemplate.New("details").Funcs(funcs).Parse(detailsSource))
	r.chart = texttemplate.Must(texttemplate.New("chart").Parse(chartSource))
	return r
}

func (r *Renderer) displayName(name string) string {
	return strings.TrimPrefix(name, r.namePrefix)
}

// FileName is the base name (without extension) used for a venue's files.
func FileName(venue string) string {
	return strings.ReplaceAll(venue, " ", "_")
}

type eventView struct {
	Name      string
	TimeSlots []domain.TimeSlot
	Summary   domain.Summary
}

func views(v *domain.Venue) []eventView {
	events := v.Events()
	out := make([]eventView, 0, len(events))
	for _, es := range events {
		out = append(out, eventView{Name: es.Name(), TimeSlots: es.TimeSlots(), Summary: es.Summary()})
	}
	return out
}

// Markdown returns the summary and detail sections as GitHub-flavoured
// Markdown.
func (r *Renderer) Markdown(v *domain.Venue) (summary, details string, err error) {
	events := views(v)
	var sb, db strings.Builder
	if err := r.summary.Execute(&sb, events); err != nil {
		return "", "", fmt.Errorf("render summary: %w", err)
	}
	if err := r.details.Execute(&db, events); err != nil {
		return "", "", fmt.Errorf("render details: %w", err)
	}
	return sb.String(), db.String(), nil
}

// Render writes the full HTML report for v.
func (r *Renderer) Render(w io.Writer, v *domain.Venue) error {
	summaryMD, detailsMD, err := r.Markdown(v)
	if err != nil {
		return err
	}
	summaryHTML, err := r.toHTML(summaryMD)
	if err != nil {
		return err
	}
	detailsHTML, err := r.toHTML(detailsMD)
	if err != nil {
		return err
	}
	chart, err := r.Chart(v)
	if err != nil {
		return err
	}

	now := r.now()
	return r.page.Execute(w, struct {
		Title   string
		Venue   string
		Date    string
		Time    string
		Summary template.HTML
		Chart   template.HTML
		Details template.HTML
	}{
		Title:   r.title,
		Venue:   v.Name(),
		Date:    now.Format("02/01/2006"),
		Time:    now.Format("15:04"),
		Summary: summaryHTML,
		Chart:   chart,
		Details: detailsHTML,
	})
}

// toHTML converts Markdown produced by our own templates. Raw HTML in the
// source is dropped by goldmark's default (safe) renderer.
func (r *Renderer) toHTML(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
