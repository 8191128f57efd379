package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSender stands in for channels without credentials. It only logs.
type LogSender struct {
	channel Channel
	log     *zap.Logger
}

func NewLogSender(channel Channel, log *zap.Logger) *LogSender {
	return &LogSender{channel: channel, log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.Info("notification not delivered, channel not configured",
		zap.String("channel", string(s.channel)),
		zap.String("to", to),
		zap.Int("length", len(body)),
	)
	return nil
}
