// Package notification delivers customer messages over SMS, WhatsApp and
// email. Delivery is always best-effort: callers log failures and move on.
package notification

import (
	"context"
	"strings"

	"github.com/cablebill/cablebill/internal/errs"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func ParseChannel(value string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(value))) {
	case ChannelSMS:
		return ChannelSMS, true
	case ChannelWhatsApp:
		return ChannelWhatsApp, true
	case ChannelEmail:
		return ChannelEmail, true
	}
	return "", false
}

type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Sender delivers over a single channel.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

var (
	ErrUnsupportedChannel   = errs.New(errs.ErrInvalidInput, "invalid_method")
	ErrMissingDestination   = errs.New(errs.ErrInvalidInput, "missing_destination")
	ErrUnavailable          = errs.New(errs.ErrUnavailable, "notification_unavailable")
	ErrDeliveryRejected     = errs.New(errs.ErrUnavailable, "notification_rejected")
	ErrChannelNotConfigured = errs.New(errs.ErrUnavailable, "notification_channel_not_configured")
)
