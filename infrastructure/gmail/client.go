package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"audioprep/domain/notification"
	"audioprep/infrastructure/googleauth"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailService defines the interface for Gmail API operations
// This allows mocking the Gmail API in tests
type GmailService interface {
	SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error)
}

// GoogleGmailService is the production implementation using the Gmail API
type GoogleGmailService struct {
	service *gmail.Service
}

// SendMessage sends an email via Gmail API
func (s *GoogleGmailService) SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
	return s.service.Users.Messages.Send(userID, message).Context(ctx).Do()
}

// Client implements notification.EmailSender using Gmail API
type Client struct {
	gmailService GmailService
	from         notification.Recipient
	template     notification.EmailTemplate
	now          func() time.Time
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithGmailService sets a custom Gmail service (for testing)
func WithGmailService(svc GmailService) ClientOption {
	return func(c *Client) {
		c.gmailService = svc
	}
}

// WithTemplate sets a custom email template
func WithTemplate(tmpl notification.EmailTemplate) ClientOption {
	return func(c *Client) {
		c.template = tmpl
	}
}

// WithClock overrides the clock used for relative dates (for testing)
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Gmail client
func NewClient(from notification.Recipient, opts ...ClientOption) *Client {
	c := &Client{
		from:     from,
		template: notification.DefaultTemplate,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientWithOAuth creates a Gmail client authorized through the browser
// OAuth flow, caching the token at tokenPath
func NewClientWithOAuth(ctx context.Context, from notification.Recipient, credentialsPath, tokenPath string, opts ...ClientOption) (*Client, error) {
	c := NewClient(from, opts...)
	if c.gmailService != nil {
		return c, nil
	}

	httpClient, err := googleauth.HTTPClient(ctx, googleauth.Config{
		CredentialsFile: credentialsPath,
		TokenFile:       tokenPath,
		Scopes:          []string{gmail.GmailSendScope},
	})
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail service: %w", err)
	}
	c.gmailService = &GoogleGmailService{service: srv}
	return c, nil
}

// Send sends an email using the Gmail API
func (c *Client) Send(ctx context.Context, req *notification.EmailRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid email request: %w", err)
	}

	email, err := c.template.Render(notification.NewTemplateData(req, c.now()))
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	rawMessage, err := c.buildMIMEMessage(req, email)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}
	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(rawMessage),
	}

	// Send via Gmail API
	_, err = c.gmailService.SendMessage(ctx, "me", message)
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrSendFailed, err)
	}

	return nil
}

// buildMIMEMessage builds an RFC 5322 message with plain text and HTML alternatives
func (c *Client) buildMIMEMessage(req *notification.EmailRequest, email *notification.RenderedEmail) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct{ contentType, content string }{
		{"text/plain", email.PlainText},
		{"text/html", email.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {part.contentType + `; charset="UTF-8"`},
		})
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, part.content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", formatAddress(c.from))
	fmt.Fprintf(&msg, "To: %s\r\n", formatAddressList(req.To))
	if len(req.CC) > 0 {
		fmt.Fprintf(&msg, "Cc: %s\r\n", formatAddressList(req.CC))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

// formatAddress quotes and encodes the display name as needed
func formatAddress(r notification.Recipient) string {
	if r.Name == "" {
		return r.Address
	}
	return (&mail.Address{Name: r.Name, Address: r.Address}).String()
}

func formatAddressList(recipients []notification.Recipient) string {
	addrs := make([]string, len(recipients))
	for i, r := range recipients {
		addrs[i] = formatAddress(r)
	}
	return strings.Join(addrs, ", ")
}
