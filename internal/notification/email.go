package notification

import (
	"context"

	"github.com/cablebill/cablebill/internal/providers/email"
)

// EmailSender adapts the SMTP provider to the Sender contract.
type EmailSender struct {
	provider email.Provider
}

func NewEmailSender(provider email.Provider) *EmailSender {
	return &EmailSender{provider: provider}
}

func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.provider.Send(ctx, []string{to}, subject, body)
}
