package auth

import (
	"errors"

	"github.com/cablebill/cablebill/internal/auth/repository"
	"github.com/cablebill/cablebill/internal/auth/service"
	"github.com/cablebill/cablebill/internal/auth/token"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(newTokenIssuer),
	fx.Provide(service.New),
)

// minProductionSecretLen matches the HS256 key size.
const minProductionSecretLen = 32

var errWeakSecret = errors.New("AUTH_JWT_SECRET must be at least 32 bytes in production")

func newTokenIssuer(cfg config.Config, c clock.Clock) (*token.Issuer, error) {
	if cfg.IsProduction() && len(cfg.AuthJWTSecret) < minProductionSecretLen {
		return nil, errWeakSecret
	}
	return token.NewIssuer(cfg.AuthJWTSecret, cfg.AuthTokenTTL, c)
}
