package bill

import (
	"github.com/cablebill/cablebill/internal/bill/repository"
	"github.com/cablebill/cablebill/internal/bill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
