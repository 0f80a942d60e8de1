package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders customer reports into HTML email bodies.
type Renderer struct {
	subject   string
	signature template.HTML
	tmpl      *template.Template
}

// NewRenderer loads the report template. subject is the base email subject;
// signature is trusted HTML appended to every report.
func NewRenderer(subject, signature string) (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":   titleCase,
		"percent": formatPercent,
	}

	tmpl, err := template.New("report_email.tmpl").Funcs(funcMap).ParseFS(templatesFS, "templates/report_email.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	return &Renderer{
		subject:   subject,
		signature: template.HTML(signature),
		tmpl:      tmpl,
	}, nil
}

type emailData struct {
	Customer   string
	WindowFrom string
	WindowTo   string
	Services   []serviceView
	Signature  template.HTML
}

type serviceView struct {
	Name          string
	HasData       bool
	Availability  string
	HealthColor   string
	WorstStatus   string
	WorstRank     int
	ChartCID      string
	Occurrences   []StatusOccurrence
	Announcements []announcementView
}

type announcementView struct {
	Title          string
	Classification string
	LastUpdated    string
}

// Render produces the subject line and HTML body for one customer report.
// chartCIDs maps service names to the Content-ID of an inline chart image;
// services absent from the map render without a chart row.
func (r *Renderer) Render(report CustomerReport, chartCIDs map[string]string, generatedAt time.Time) (subject, body string, err error) {
	subject = fmt.Sprintf("[%s] %s - %s",
		report.Customer.Name, r.subject, generatedAt.UTC().Format("2006-01-02 15:04"))

	data := emailData{
		Customer:   report.Customer.Name,
		WindowFrom: report.Window.From.Format("2006-01-02"),
		WindowTo:   report.Window.To.Format("2006-01-02"),
		Signature:  r.signature,
	}

	for _, s := range report.Services {
		view := serviceView{
			Name:        s.Service,
			HasData:     s.HasData,
			WorstStatus: s.WorstStatus,
			WorstRank:   s.WorstRank,
			ChartCID:    chartCIDs[s.Service],
			Occurrences: s.Occurrences,
		}
		if s.HasData {
			view.Availability = formatPercent(s.Availability)
			view.HealthColor = healthColor(s.Availability)
		}
		for _, a := range s.Announcements {
			view.Announcements = append(view.Announcements, announcementView{
				Title:          a.Title,
				Classification: a.Classification,
				LastUpdated:    a.LastUpdated.UTC().Format("2006-01-02 15:04"),
			})
		}
		data.Services = append(data.Services, view)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("execute report template: %w", err)
	}
	return subject, buf.String(), nil
}

// healthColor picks the availability row background: green from 97%, yellow
// from 95%, red below.
func healthColor(availability float64) string {
	switch {
	case availability >= 97:
		return "#d9f2d9"
	case availability >= 95:
		return "#fff8d9"
	default:
		return "#ffd9d9"
	}
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatPercent(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
