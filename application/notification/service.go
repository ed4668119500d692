package notification

import (
	"context"
	"time"

	"audioprep/domain/notification"
)

// Service handles email notification operations
type Service struct {
	sender     notification.EmailSender
	senderName string
	now        func() time.Time
}

// NewService creates a new notification service
func NewService(sender notification.EmailSender, senderName string) *Service {
	return &Service{
		sender:     sender,
		senderName: senderName,
		now:        time.Now,
	}
}

// SendRequest contains the parameters for announcing a cleaned recording
type SendRequest struct {
	To        []notification.Recipient
	CC        []notification.Recipient
	Title     string
	AudioURL  string
	SourceURL string
	Length    time.Duration
	SizeBytes int64
}

// Send validates and sends the notification email
func (s *Service) Send(ctx context.Context, req SendRequest) error {
	emailReq := &notification.EmailRequest{
		To:          req.To,
		CC:          req.CC,
		Title:       req.Title,
		AudioURL:    req.AudioURL,
		SourceURL:   req.SourceURL,
		Length:      req.Length,
		SizeBytes:   req.SizeBytes,
		CompletedAt: s.now(),
		SenderName:  s.senderName,
	}

	if err := emailReq.Validate(); err != nil {
		return err
	}

	return s.sender.Send(ctx, emailReq)
}
