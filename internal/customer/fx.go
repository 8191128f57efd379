package customer

import (
	"github.com/cablebill/cablebill/internal/customer/repository"
	"github.com/cablebill/cablebill/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
