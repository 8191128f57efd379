package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSender struct {
	calls atomic.Int32
	err   error
}

func (s *failingSender) Send(ctx context.Context, to, subject, body string) error {
	s.calls.Add(1)
	return s.err
}

func TestRouterValidatesMessage(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), zap.NewNop(), nil, map[Channel]Sender{
		ChannelSMS: NewLogSender(ChannelSMS, zap.NewNop()),
	})
	ctx := context.Background()

	require.ErrorIs(t, r.Send(ctx, Message{Channel: ChannelSMS}), ErrMissingDestination)
	require.ErrorIs(t, r.Send(ctx, Message{Channel: "pigeon", To: "1"}), ErrUnsupportedChannel)
	require.ErrorIs(t, r.Send(ctx, Message{Channel: ChannelEmail, To: "a@b.c"}), ErrChannelNotConfigured)
	require.NoError(t, r.Send(ctx, Message{Channel: ChannelSMS, To: "9876543210", Body: "hi"}))
}

func TestRouterOpensBreakerAfterFailures(t *testing.T) {
	sender := &failingSender{err: errors.New("gateway down")}
	r := NewRouter(RouterConfig{Timeout: time.Second, FailureThreshold: 2, OpenTimeout: time.Hour}, zap.NewNop(), nil,
		map[Channel]Sender{ChannelSMS: sender})
	ctx := context.Background()
	msg := Message{Channel: ChannelSMS, To: "9876543210", Body: "hi"}

	for i := 0; i < 2; i++ {
		err := r.Send(ctx, msg)
		require.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, errs.ErrUnavailable)
	}

	err := r.Send(ctx, msg)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), sender.calls.Load(), "open breaker must short-circuit")
}

func TestMSG91Sender(t *testing.T) {
	var got msg91Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("authkey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(msg91Response{Type: "success"})
	}))
	defer srv.Close()

	s := NewMSG91Sender(config.SMSConfig{Endpoint: srv.URL, AuthKey: "secret", SenderID: "CABLEB", FlowID: "flow", CountryCode: "91"})
	require.NoError(t, s.Send(context.Background(), "9876543210", "", "hello"))
	assert.Equal(t, "919876543210", got.Mobiles)
	assert.Equal(t, "hello", got.VAR1)
	assert.Equal(t, "flow", got.FlowID)
}

func TestMSG91SenderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(msg91Response{Type: "error", Message: "invalid flow"})
	}))
	defer srv.Close()

	s := NewMSG91Sender(config.SMSConfig{Endpoint: srv.URL, CountryCode: "91"})
	err := s.Send(context.Background(), "9876543210", "", "hello")
	require.ErrorIs(t, err, ErrDeliveryRejected)
}

func TestWhatsAppSender(t *testing.T) {
	var got whatsAppRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(config.WhatsAppConfig{Endpoint: srv.URL, Token: "tok", From: "+911234567890"}, "91")
	require.NoError(t, s.Send(context.Background(), "9876543210", "", "paid"))
	assert.Equal(t, "+919876543210", got.To)
	assert.Equal(t, "paid", got.Message)
}

func TestTemplates(t *testing.T) {
	text := InvoiceText(InvoiceNotice{
		CustomerName:  "Ravi",
		PlanName:      "Basic",
		InvoiceNumber: "INV-202401-000001",
		Amount:        60000,
		DueDate:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "Dear Ravi,\nYour bill for Basic (Invoice No: INV-202401-000001) is Rs. 600.00. Due Date: 10 Jan 2024. Thank you!", text)

	paid := PaymentText(PaymentNotice{CustomerName: "Ravi", InvoiceNumber: "INV-1", Amount: 30000, Remaining: 0})
	assert.Contains(t, paid, "payment of ₹300.00")
	assert.Contains(t, paid, "remaining balance is ₹0.00")
}
