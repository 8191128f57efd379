package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cablebill/cablebill/internal/config"
)

type whatsAppRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// WhatsAppSender posts text messages to a WhatsApp Business solution
// provider endpoint.
type WhatsAppSender struct {
	cfg         config.WhatsAppConfig
	countryCode string
	client      *http.Client
}

func NewWhatsAppSender(cfg config.WhatsAppConfig, countryCode string) *WhatsAppSender {
	return &WhatsAppSender{
		cfg:         cfg,
		countryCode: countryCode,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WhatsAppSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(whatsAppRequest{
		From:    s.cfg.From,
		To:      "+" + s.countryCode + to,
		Message: body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode < http.StatusInternalServerError {
			return fmt.Errorf("%w: whatsapp: status %d: %s", ErrDeliveryRejected, resp.StatusCode, detail)
		}
		return fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
