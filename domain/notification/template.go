package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// TemplateData contains all the fields available for email template rendering
type TemplateData struct {
	Greeting   string
	Title      string
	WhenRef    string // "today", "yesterday" or "on 1/2"
	Details    string // "42m 10s, 22 MB"; empty when unknown
	AudioURL   string
	SourceURL  string
	SenderName string
}

// EmailTemplate holds the template sources. HTML is rendered with
// html/template so titles and URLs are escaped.
type EmailTemplate struct {
	SubjectFormat string
	PlainText     string
	HTML          string
}

// DefaultTemplate announces a cleaned recording
var DefaultTemplate = EmailTemplate{
	SubjectFormat: "Cleaned audio ready: {{.Title}}",
	PlainText: `{{.Greeting}}

The cleaned audio for "{{.Title}}" is ready{{if .WhenRef}} as of {{.WhenRef}}{{end}}.

Audio: {{.AudioURL}}{{if .Details}} ({{.Details}}){{end}}
{{- if .SourceURL}}
Source: {{.SourceURL}}
{{- end}}

Thanks!
{{.SenderName}}`,
	HTML: `<div dir="ltr">{{.Greeting}}<br><br>
The cleaned <a href="{{.AudioURL}}">audio</a>{{if .Details}} ({{.Details}}){{end}} for "{{.Title}}" is ready{{if .WhenRef}} as of {{.WhenRef}}{{end}}.<br><br>
{{- if .SourceURL}}
Source: <a href="{{.SourceURL}}">{{.SourceURL}}</a><br><br>
{{- end}}
Thanks!<br>
{{.SenderName}}</div>`,
}

// FormatGreeting addresses one or two people by first name and larger groups collectively
func FormatGreeting(recipients []Recipient) string {
	switch len(recipients) {
	case 0:
		return "Hello,"
	case 1:
		return fmt.Sprintf("Dear %s,", firstName(recipients[0].Name))
	case 2:
		return fmt.Sprintf("Dear %s & %s,", firstName(recipients[0].Name), firstName(recipients[1].Name))
	default:
		return "Hi all,"
	}
}

func firstName(fullName string) string {
	if fields := strings.Fields(fullName); len(fields) > 0 {
		return fields[0]
	}
	return "Friend"
}

// FormatWhenRef describes when processing finished relative to now:
// same day "today", previous day "yesterday", otherwise "1/2".
// A zero time yields "".
func FormatWhenRef(completed, now time.Time) string {
	if completed.IsZero() {
		return ""
	}
	cy, cm, cd := completed.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	days := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).Sub(time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour)

	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return completed.Format("1/2")
	}
}

// FormatDetails renders length and size, skipping whichever is unknown
func FormatDetails(length time.Duration, size int64) string {
	var parts []string
	if length > 0 {
		parts = append(parts, length.Round(time.Second).String())
	}
	if size > 0 {
		parts = append(parts, humanize.Bytes(uint64(size)))
	}
	return strings.Join(parts, ", ")
}

// NewTemplateData builds template fields for req
func NewTemplateData(req *EmailRequest, now time.Time) TemplateData {
	return TemplateData{
		Greeting:   FormatGreeting(req.To),
		Title:      req.Title,
		WhenRef:    FormatWhenRef(req.CompletedAt, now),
		Details:    FormatDetails(req.Length, req.SizeBytes),
		AudioURL:   req.AudioURL,
		SourceURL:  req.SourceURL,
		SenderName: req.SenderName,
	}
}

// RenderedEmail is the output of EmailTemplate.Render
type RenderedEmail struct {
	Subject   string
	PlainText string
	HTML      string
}

// Render produces subject and both bodies; the subject is collapsed to one line
func (t *EmailTemplate) Render(data TemplateData) (*RenderedEmail, error) {
	subject, err := renderText("subject", t.SubjectFormat, data)
	if err != nil {
		return nil, err
	}
	plain, err := renderText("plaintext", t.PlainText, data)
	if err != nil {
		return nil, err
	}

	html, err := htmltemplate.New("html").Parse(t.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	var buf bytes.Buffer
	if err := html.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute html template: %w", err)
	}

	return &RenderedEmail{
		Subject:   strings.Join(strings.Fields(subject), " "),
		PlainText: plain,
		HTML:      buf.String(),
	}, nil
}

func renderText(name, source string, data TemplateData) (string, error) {
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}
