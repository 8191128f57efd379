// Package seed bootstraps the first administrator of a fresh installation.
package seed

import (
	"context"

	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/cablebill/cablebill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(registerBootstrap),
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Repo  authdomain.Repository
	Users authdomain.Service
}

// EnsureAdmin creates the bootstrap administrator when the users table is
// empty and credentials are configured. It returns the created user, or nil
// when nothing had to be done.
func EnsureAdmin(ctx context.Context, p Params) (*authdomain.User, error) {
	log := p.Log.Named("seed")
	bootstrap := p.Cfg.Bootstrap
	if bootstrap.AdminUsername == "" || bootstrap.AdminPassword == "" {
		return nil, nil
	}

	count, err := p.Repo.Count(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	user, err := p.Users.Register(ctx, nil, authdomain.RegisterRequest{
		Username: bootstrap.AdminUsername,
		Password: bootstrap.AdminPassword,
		Name:     bootstrap.AdminName,
		Role:     string(authdomain.RoleAdmin),
	})
	if err != nil {
		return nil, err
	}

	log.Info("bootstrap admin created", zap.String("username", user.Username))
	return user, nil
}

func registerBootstrap(lc fx.Lifecycle, p Params) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := EnsureAdmin(ctx, p)
			return err
		},
	})
}
