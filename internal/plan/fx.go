package plan

import (
	"github.com/cablebill/cablebill/internal/plan/repository"
	"github.com/cablebill/cablebill/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
