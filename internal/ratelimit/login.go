package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/cablebill/cablebill/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const loginKeyPrefix = "cablebill:login:"

// LoginLimiter throttles password attempts per client address. Without
// redis every attempt is allowed.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

type LoginParams struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Config config.Config
	Log    *zap.Logger
}

func NewLoginLimiter(p LoginParams) *LoginLimiter {
	burst := p.Config.AuthLoginBurst
	perMinute := p.Config.AuthLoginPerMinute
	if burst <= 0 || perMinute <= 0 {
		return &LoginLimiter{log: p.Log.Named("ratelimit.login")}
	}
	return &LoginLimiter{
		bucket: NewTokenBucket(p.Client),
		rate:   float64(perMinute) / 60,
		burst:  burst,
		log:    p.Log.Named("ratelimit.login"),
	}
}

// Allow reports whether another attempt from client may proceed and, if
// not, how long the caller should wait. Redis failures fail open.
func (l *LoginLimiter) Allow(ctx context.Context, client string) (bool, time.Duration) {
	if l == nil || l.bucket == nil {
		return true, 0
	}
	client = strings.TrimSpace(client)
	if client == "" {
		client = "unknown"
	}

	res, err := l.bucket.Allow(ctx, loginKeyPrefix+client, l.rate, l.burst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.String("client", client), zap.Error(err))
		return true, 0
	}
	if !res.Allowed {
		l.log.Info("login attempt throttled", zap.String("client", client), zap.Duration("retry_after", res.RetryAfter))
	}
	return res.Allowed, res.RetryAfter
}
