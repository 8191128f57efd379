package seed

import (
	"context"
	"testing"
	"time"

	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	authrepo "github.com/cablebill/cablebill/internal/auth/repository"
	authservice "github.com/cablebill/cablebill/internal/auth/service"
	"github.com/cablebill/cablebill/internal/auth/token"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newParams(t *testing.T, bootstrap config.BootstrapConfig) Params {
	t.Helper()
	conn := testutil.NewDB(t)
	c := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	issuer, err := token.NewIssuer("test-secret", time.Hour, c)
	require.NoError(t, err)
	repo := authrepo.Provide()

	return Params{
		DB:   conn,
		Log:  zap.NewNop(),
		Cfg:  config.Config{Bootstrap: bootstrap},
		Repo: repo,
		Users: authservice.New(authservice.Params{
			DB:     conn,
			Log:    zap.NewNop(),
			GenID:  testutil.NewNode(t),
			Clock:  c,
			Repo:   repo,
			Tokens: issuer,
		}),
	}
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	p := newParams(t, config.BootstrapConfig{AdminUsername: "root", AdminPassword: "change-me", AdminName: "Administrator"})
	ctx := context.Background()

	user, err := EnsureAdmin(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, authdomain.RoleAdmin, user.Role)
	assert.Equal(t, "root", user.Username)

	again, err := EnsureAdmin(ctx, p)
	require.NoError(t, err)
	assert.Nil(t, again)

	count, err := p.Repo.Count(ctx, p.DB)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	p := newParams(t, config.BootstrapConfig{})

	user, err := EnsureAdmin(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, user)
}
