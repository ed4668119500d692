package notification

import (
	"context"
	"time"
)

// Recipient represents an email recipient with name and address
type Recipient struct {
	Name    string
	Address string
}

// EmailRequest announces one cleaned recording
type EmailRequest struct {
	To          []Recipient
	CC          []Recipient
	Title       string        // media title reported by the fetch stage
	AudioURL    string        // shareable link to the cleaned waveform
	SourceURL   string        // optional
	Length      time.Duration // optional playing time of the cleaned audio
	SizeBytes   int64         // optional
	CompletedAt time.Time
	SenderName  string
}

// Validate checks that the email request has all required fields
func (r *EmailRequest) Validate() error {
	switch {
	case len(r.To) == 0:
		return ErrNoRecipients
	case r.Title == "":
		return ErrNoTitle
	case r.AudioURL == "":
		return ErrNoAudioURL
	}
	for _, group := range [][]Recipient{r.To, r.CC} {
		for _, rcpt := range group {
			if rcpt.Address == "" {
				return ErrInvalidRecipient
			}
		}
	}
	return nil
}

// EmailSender defines the interface for sending emails
type EmailSender interface {
	Send(ctx context.Context, req *EmailRequest) error
}
