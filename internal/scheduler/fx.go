package scheduler

import (
	"context"

	"github.com/cablebill/cablebill/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, holder *config.BillingConfigHolder, sched *Scheduler) {
	holder.OnChange(func(cfg config.BillingConfig) {
		_ = sched.Reload(cfg)
	})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sched.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop(ctx)
			return nil
		},
	})
}
