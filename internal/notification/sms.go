package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cablebill/cablebill/internal/config"
)

type msg91Request struct {
	FlowID  string `json:"flow_id"`
	Sender  string `json:"sender"`
	Mobiles string `json:"mobiles"`
	VAR1    string `json:"VAR1"`
}

type msg91Response struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MSG91Sender sends text through an MSG91 flow whose single variable VAR1
// carries the whole message.
type MSG91Sender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewMSG91Sender(cfg config.SMSConfig) *MSG91Sender {
	return &MSG91Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *MSG91Sender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(msg91Request{
		FlowID:  s.cfg.FlowID,
		Sender:  s.cfg.SenderID,
		Mobiles: s.cfg.CountryCode + strings.TrimPrefix(strings.TrimSpace(to), "+"),
		VAR1:    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("authkey", s.cfg.AuthKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out msg91Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("msg91: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("msg91: status %d: %s", resp.StatusCode, out.Message)
	}
	if out.Type != "success" {
		return fmt.Errorf("%w: msg91: %s", ErrDeliveryRejected, out.Message)
	}
	return nil
}
