package billing

import (
	"github.com/cablebill/cablebill/internal/billing/repository"
	"github.com/cablebill/cablebill/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.engine",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
