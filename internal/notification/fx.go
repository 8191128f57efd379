package notification

import (
	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/observability/metrics"
	"github.com/cablebill/cablebill/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	email.Module,
	fx.Provide(NewFromConfig),
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
	Email   email.Provider
}

// NewFromConfig wires a sender per channel. Channels without credentials log
// instead of sending.
func NewFromConfig(p Params) Dispatcher {
	cfg := p.Config
	senders := map[Channel]Sender{}

	if cfg.SMS.AuthKey != "" && cfg.SMS.FlowID != "" {
		senders[ChannelSMS] = NewMSG91Sender(cfg.SMS)
	} else {
		senders[ChannelSMS] = NewLogSender(ChannelSMS, p.Log)
	}

	if cfg.WhatsApp.Endpoint != "" {
		senders[ChannelWhatsApp] = NewWhatsAppSender(cfg.WhatsApp, cfg.SMS.CountryCode)
	} else {
		senders[ChannelWhatsApp] = NewLogSender(ChannelWhatsApp, p.Log)
	}

	if cfg.Email.SMTPHost != "" {
		senders[ChannelEmail] = NewEmailSender(p.Email)
	} else {
		senders[ChannelEmail] = NewLogSender(ChannelEmail, p.Log)
	}

	return NewRouter(DefaultRouterConfig(), p.Log, p.Metrics, senders)
}
