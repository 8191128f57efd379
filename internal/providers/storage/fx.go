package storage

import (
	"context"

	"github.com/cablebill/cablebill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	if cfg.Storage.Bucket == "" {
		log.Warn("document storage bucket not configured, keeping uploads in memory")
		return NewMemoryProvider(), nil
	}
	return NewS3Provider(context.Background(), cfg.Storage)
}
