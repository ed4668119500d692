package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"audioprep/domain/notification"

	"google.golang.org/api/gmail/v1"
)

type mockGmailService struct {
	sentMessages []*gmail.Message
	failError    error
}

func (m *mockGmailService) SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	m.sentMessages = append(m.sentMessages, message)
	return &gmail.Message{Id: "test-message-id"}, nil
}

var testFrom = notification.Recipient{Name: "Audio Desk", Address: "audiodesk@example.com"}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
}

// sentEmail is a decoded message as a mail client would see it
type sentEmail struct {
	header mail.Header
	parts  map[string]string // media type -> body
}

func decodeSent(t *testing.T, msg *gmail.Message) sentEmail {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		t.Fatalf("failed to decode raw message: %v", err)
	}
	m, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("failed to parse message: %v\n%s", err, raw)
	}

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/alternative" {
		t.Fatalf("Content-Type = %q, %v", m.Header.Get("Content-Type"), err)
	}

	parts := map[string]string{}
	r := multipart.NewReader(m.Body, params["boundary"])
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		partType, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		body, _ := io.ReadAll(p)
		parts[partType] = string(body)
	}
	return sentEmail{header: m.Header, parts: parts}
}

func addresses(t *testing.T, h mail.Header, key string) []string {
	t.Helper()
	list, err := h.AddressList(key)
	if err != nil {
		t.Fatalf("%s header: %v", key, err)
	}
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name + " <" + a.Address + ">"
	}
	return out
}

func TestClient_Send(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(testFrom, WithGmailService(mock), WithClock(fixedClock))

	req := &notification.EmailRequest{
		To:          []notification.Recipient{{Name: "Ada Lovelace", Address: "ada@example.com"}},
		CC:          []notification.Recipient{{Name: "Grace Hopper", Address: "grace@example.com"}},
		Title:       "Evening Lecture",
		AudioURL:    "https://drive.google.com/file/d/abc/view",
		SourceURL:   "https://www.youtube.com/watch?v=xyz",
		Length:      42 * time.Minute,
		CompletedAt: fixedClock(),
		SenderName:  "Audio Desk",
	}

	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(mock.sentMessages) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(mock.sentMessages))
	}

	email := decodeSent(t, mock.sentMessages[0])

	if got := addresses(t, email.header, "From"); got[0] != "Audio Desk <audiodesk@example.com>" {
		t.Errorf("From = %v", got)
	}
	if got := addresses(t, email.header, "To"); len(got) != 1 || got[0] != "Ada Lovelace <ada@example.com>" {
		t.Errorf("To = %v", got)
	}
	if got := addresses(t, email.header, "Cc"); len(got) != 1 || got[0] != "Grace Hopper <grace@example.com>" {
		t.Errorf("Cc = %v", got)
	}
	if got := email.header.Get("Subject"); got != "Cleaned audio ready: Evening Lecture" {
		t.Errorf("Subject = %q", got)
	}

	plain := email.parts["text/plain"]
	for _, want := range []string{"Dear Ada,", "as of today", "https://drive.google.com/file/d/abc/view (42m0s)", "Source: https://www.youtube.com/watch?v=xyz"} {
		if !strings.Contains(plain, want) {
			t.Errorf("plain text missing %q:\n%s", want, plain)
		}
	}
	if !strings.Contains(email.parts["text/html"], `href="https://drive.google.com/file/d/abc/view"`) {
		t.Errorf("html part missing link:\n%s", email.parts["text/html"])
	}
}

func TestClient_Send_NonASCIIHeaders(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(testFrom, WithGmailService(mock))

	req := &notification.EmailRequest{
		To:       []notification.Recipient{{Name: "José Núñez", Address: "jose@example.com"}, {Address: "alice@example.com"}},
		Title:    "Café talk",
		AudioURL: "https://example.com/a.wav",
	}
	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	email := decodeSent(t, mock.sentMessages[0])

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(email.header.Get("Subject"))
	if err != nil || subject != "Cleaned audio ready: Café talk" {
		t.Errorf("Subject = %q, %v", subject, err)
	}

	to := addresses(t, email.header, "To")
	if len(to) != 2 || to[0] != "José Núñez <jose@example.com>" || to[1] != " <alice@example.com>" {
		t.Errorf("To = %v", to)
	}
	if email.header.Get("Cc") != "" {
		t.Error("message should not have a Cc header")
	}
	if !strings.Contains(email.parts["text/plain"], "Dear José & Friend,") {
		t.Errorf("greeting missing:\n%s", email.parts["text/plain"])
	}
}

func TestClient_Send_ValidationError(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(testFrom, WithGmailService(mock))

	err := client.Send(context.Background(), &notification.EmailRequest{
		Title:    "Talk",
		AudioURL: "https://drive.google.com/file/d/abc/view",
	})
	if !errors.Is(err, notification.ErrNoRecipients) {
		t.Errorf("Send() error = %v, want ErrNoRecipients", err)
	}
	if len(mock.sentMessages) != 0 {
		t.Error("no message should be sent")
	}
}

func TestClient_Send_TemplateError(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(testFrom, WithGmailService(mock), WithTemplate(notification.EmailTemplate{SubjectFormat: "{{"}))

	err := client.Send(context.Background(), &notification.EmailRequest{
		To:       []notification.Recipient{{Address: "ada@example.com"}},
		Title:    "Talk",
		AudioURL: "https://example.com/a.wav",
	})
	if err == nil || !strings.Contains(err.Error(), "failed to render email") {
		t.Errorf("Send() error = %v", err)
	}
}

func TestClient_Send_APIFailure(t *testing.T) {
	mock := &mockGmailService{failError: errors.New("quota exceeded")}
	client := NewClient(testFrom, WithGmailService(mock))

	err := client.Send(context.Background(), &notification.EmailRequest{
		To:       []notification.Recipient{{Address: "ada@example.com"}},
		Title:    "Talk",
		AudioURL: "https://example.com/a.wav",
	})
	if !errors.Is(err, notification.ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}

func TestNewClientWithOAuth_UsesProvidedService(t *testing.T) {
	mock := &mockGmailService{}
	client, err := NewClientWithOAuth(context.Background(), testFrom, "", "", WithGmailService(mock))
	if err != nil {
		t.Fatalf("NewClientWithOAuth() error = %v", err)
	}
	if client.gmailService != mock {
		t.Error("expected injected service to be used")
	}
}
