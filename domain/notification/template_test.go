package notification

import (
	"strings"
	"testing"
	"time"
)

func sampleData() TemplateData {
	return TemplateData{
		Greeting:   "Dear Ada,",
		Title:      "Evening Lecture",
		WhenRef:    "today",
		Details:    "42m10s, 22 MB",
		AudioURL:   "https://drive.google.com/file/d/abc/view",
		SourceURL:  "https://www.youtube.com/watch?v=xyz",
		SenderName: "Lecture Bot",
	}
}

func TestEmailTemplate_Render(t *testing.T) {
	email, err := DefaultTemplate.Render(sampleData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if email.Subject != "Cleaned audio ready: Evening Lecture" {
		t.Errorf("Subject = %q", email.Subject)
	}

	for _, want := range []string{
		"Dear Ada,",
		`"Evening Lecture" is ready as of today.`,
		"Audio: https://drive.google.com/file/d/abc/view (42m10s, 22 MB)",
		"Source: https://www.youtube.com/watch?v=xyz",
		"Thanks!\nLecture Bot",
	} {
		if !strings.Contains(email.PlainText, want) {
			t.Errorf("plain text missing %q in:\n%s", want, email.PlainText)
		}
	}

	for _, want := range []string{
		`<a href="https://drive.google.com/file/d/abc/view">audio</a> (42m10s, 22 MB)`,
		"Lecture Bot</div>",
	} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("html missing %q in:\n%s", want, email.HTML)
		}
	}
}

func TestEmailTemplate_Render_OmitsOptionalParts(t *testing.T) {
	email, err := DefaultTemplate.Render(TemplateData{Greeting: "Hello,", Title: "Clip", AudioURL: "https://example.com/a.wav"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, unwanted := range []string{"Source:", "as of", "()"} {
		if strings.Contains(email.PlainText, unwanted) {
			t.Errorf("plain text should not contain %q:\n%s", unwanted, email.PlainText)
		}
	}
}

func TestEmailTemplate_Render_EscapesHTML(t *testing.T) {
	data := sampleData()
	data.Title = `Q&A <live>`

	email, err := DefaultTemplate.Render(data)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(email.HTML, "<live>") {
		t.Errorf("html title was not escaped:\n%s", email.HTML)
	}
	if !strings.Contains(email.HTML, "Q&amp;A &lt;live&gt;") {
		t.Errorf("expected escaped title in:\n%s", email.HTML)
	}
	if !strings.Contains(email.PlainText, `"Q&A <live>"`) {
		t.Errorf("plain text should keep the raw title:\n%s", email.PlainText)
	}
}

func TestEmailTemplate_Render_SingleLineSubject(t *testing.T) {
	tmpl := DefaultTemplate
	data := sampleData()
	data.Title = "Part 1\nPart 2"

	email, err := tmpl.Render(data)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if email.Subject != "Cleaned audio ready: Part 1 Part 2" {
		t.Errorf("Subject = %q", email.Subject)
	}
}

func TestEmailTemplate_Render_BadTemplate(t *testing.T) {
	tmpl := EmailTemplate{SubjectFormat: "{{.Missing", PlainText: "x", HTML: "x"}
	if _, err := tmpl.Render(sampleData()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFormatWhenRef(t *testing.T) {
	completed := time.Date(2025, 12, 28, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"later the same day", completed.Add(time.Hour), "today"},
		{"just after midnight", completed.Add(3 * time.Hour), "yesterday"},
		{"a week later", completed.AddDate(0, 0, 7), "12/28"},
	}
	for _, tt := range tests {
		if got := FormatWhenRef(completed, tt.now); got != tt.want {
			t.Errorf("%s: FormatWhenRef() = %q, want %q", tt.name, got, tt.want)
		}
	}

	if got := FormatWhenRef(time.Time{}, completed); got != "" {
		t.Errorf("zero time: got %q", got)
	}
}

func TestFormatDetails(t *testing.T) {
	tests := []struct {
		length time.Duration
		size   int64
		want   string
	}{
		{0, 0, ""},
		{90*time.Second + 400*time.Millisecond, 0, "1m30s"},
		{0, 2_500_000, "2.5 MB"},
		{time.Hour, 1000, "1h0m0s, 1.0 kB"},
	}
	for _, tt := range tests {
		if got := FormatDetails(tt.length, tt.size); got != tt.want {
			t.Errorf("FormatDetails(%v, %d) = %q, want %q", tt.length, tt.size, got, tt.want)
		}
	}
}

func TestFormatGreeting(t *testing.T) {
	tests := []struct {
		recipients []Recipient
		want       string
	}{
		{nil, "Hello,"},
		{[]Recipient{{Name: "Ada Lovelace"}}, "Dear Ada,"},
		{[]Recipient{{Name: "  Grace   Hopper "}}, "Dear Grace,"},
		{[]Recipient{{Name: "Ada Lovelace"}, {Name: "Grace Hopper"}}, "Dear Ada & Grace,"},
		{[]Recipient{{Name: "A"}, {Name: "B"}, {Name: "C"}}, "Hi all,"},
		{[]Recipient{{Address: "ada@example.com"}}, "Dear Friend,"},
	}
	for _, tt := range tests {
		if got := FormatGreeting(tt.recipients); got != tt.want {
			t.Errorf("FormatGreeting(%v) = %q, want %q", tt.recipients, got, tt.want)
		}
	}
}

func TestNewTemplateData(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	data := NewTemplateData(&EmailRequest{
		To:          []Recipient{{Name: "Ada Lovelace", Address: "ada@example.com"}},
		Title:       "Talk",
		AudioURL:    "https://example.com/talk_clean.wav",
		Length:      5 * time.Minute,
		CompletedAt: now.Add(-24 * time.Hour),
		SenderName:  "Ops",
	}, now)

	want := TemplateData{
		Greeting:   "Dear Ada,",
		Title:      "Talk",
		WhenRef:    "yesterday",
		Details:    "5m0s",
		AudioURL:   "https://example.com/talk_clean.wav",
		SenderName: "Ops",
	}
	if data != want {
		t.Errorf("NewTemplateData() = %+v, want %+v", data, want)
	}
}
