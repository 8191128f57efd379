package subscription

import (
	"github.com/cablebill/cablebill/internal/subscription/repository"
	"github.com/cablebill/cablebill/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
