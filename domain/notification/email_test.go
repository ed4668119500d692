package notification

import (
	"errors"
	"testing"
)

func TestEmailRequest_Validate(t *testing.T) {
	valid := func() EmailRequest {
		return EmailRequest{
			To:       []Recipient{{Name: "Ada Lovelace", Address: "ada@example.com"}},
			Title:    "Evening Lecture",
			AudioURL: "https://drive.google.com/file/d/abc/view",
		}
	}

	tests := map[string]struct {
		modify  func(*EmailRequest)
		wantErr error
	}{
		"minimal request":      {func(r *EmailRequest) {}, nil},
		"optional fields set":  {func(r *EmailRequest) { r.SourceURL = "https://youtu.be/x"; r.SizeBytes = 10 }, nil},
		"nil to":               {func(r *EmailRequest) { r.To = nil }, ErrNoRecipients},
		"missing title":        {func(r *EmailRequest) { r.Title = "" }, ErrNoTitle},
		"missing audio url":    {func(r *EmailRequest) { r.AudioURL = "" }, ErrNoAudioURL},
		"to without address":   {func(r *EmailRequest) { r.To = append(r.To, Recipient{Name: "Grace"}) }, ErrInvalidRecipient},
		"cc without address":   {func(r *EmailRequest) { r.CC = []Recipient{{Name: "Grace"}} }, ErrInvalidRecipient},
		"no to beats no title": {func(r *EmailRequest) { r.To = nil; r.Title = "" }, ErrNoRecipients},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := valid()
			tt.modify(&req)
			if err := req.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
