package payment

import (
	"context"

	"github.com/cablebill/cablebill/internal/payment/domain"
	"github.com/cablebill/cablebill/internal/payment/repository"
	"github.com/cablebill/cablebill/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Invoke(registerShutdown),
)

// registerShutdown lets queued payment confirmations drain before exit.
func registerShutdown(lc fx.Lifecycle, svc domain.Service) {
	waiter, ok := svc.(interface{ Wait() })
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				waiter.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
