package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cablebill/cablebill/internal/observability/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      time.Minute,
	}
}

type route struct {
	sender  Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Router dispatches each message to the sender registered for its channel.
// Every channel has its own circuit breaker so a failing SMS gateway does not
// slow down email.
type Router struct {
	routes  map[Channel]route
	cfg     RouterConfig
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewRouter(cfg RouterConfig, log *zap.Logger, m *metrics.Metrics, senders map[Channel]Sender) *Router {
	r := &Router{
		routes:  make(map[Channel]route, len(senders)),
		cfg:     cfg,
		log:     log.Named("notification"),
		metrics: m,
	}
	for channel, sender := range senders {
		r.routes[channel] = route{sender: sender, breaker: r.newBreaker(channel)}
	}
	return r
}

func (r *Router) newBreaker(channel Channel) *gobreaker.CircuitBreaker[struct{}] {
	threshold := r.cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        string(channel),
		MaxRequests: 1,
		Timeout:     r.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// a context cancelled by the caller says nothing about the gateway
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn("notification circuit breaker state changed",
				zap.String("channel", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func (r *Router) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrMissingDestination
	}
	rt, ok := r.routes[msg.Channel]
	if !ok {
		if _, known := ParseChannel(string(msg.Channel)); known {
			return ErrChannelNotConfigured
		}
		return ErrUnsupportedChannel
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	_, err := rt.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, rt.sender.Send(ctx, msg.To, msg.Subject, msg.Body)
	})

	outcome := "sent"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
	case err != nil:
		outcome = "failed"
	}
	r.metrics.RecordNotification(ctx, string(msg.Channel), outcome)

	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDeliveryRejected) {
		return err
	}
	return errors.Join(ErrUnavailable, fmt.Errorf("%s: %w", msg.Channel, err))
}
