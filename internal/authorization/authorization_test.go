package authorization

import (
	"context"
	"testing"

	"github.com/cablebill/cablebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(testutil.NewDB(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAdminCanDoEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "admin", ObjectBillingRun, ActionBillingRunStart))
	assert.NoError(t, svc.Authorize(ctx, "admin", ObjectPlan, ActionDelete))
	assert.NoError(t, svc.Authorize(ctx, "ADMIN", ObjectUser, ActionCreate))
}

func TestCollectionAgentPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	allowed := [][2]string{
		{ObjectCustomer, ActionView},
		{ObjectCustomer, ActionCreate},
		{ObjectCustomer, ActionUpdate},
		{ObjectSubscription, ActionSubscriptionAssign},
		{ObjectBill, ActionBillSend},
		{ObjectBill, ActionBillPDF},
		{ObjectPayment, ActionPaymentRecord},
	}
	for _, p := range allowed {
		assert.NoError(t, svc.Authorize(ctx, "collection_agent", p[0], p[1]), p)
	}

	denied := [][2]string{
		{ObjectCustomer, ActionDelete},
		{ObjectPlan, ActionCreate},
		{ObjectSubscription, ActionSubscriptionDeactivate},
		{ObjectBillingRun, ActionBillingRunStart},
		{ObjectUser, ActionDelete},
		{ObjectUser, ActionUserSetActive},
		{ObjectPayment, ActionView},
		{ObjectAuditLog, ActionView},
	}
	for _, p := range denied {
		assert.ErrorIs(t, svc.Authorize(ctx, "collection_agent", p[0], p[1]), ErrForbidden, p)
	}
}

func TestUnknownRoleIsDenied(t *testing.T) {
	svc := newTestService(t)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "guest", ObjectBill, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "", ObjectBill, ActionView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "admin", "", ActionView), ErrInvalidObject)
}

func TestSyncPoliciesRemovesStaleGrants(t *testing.T) {
	conn := testutil.NewDB(t)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	_, err = enforcer.AddPolicy("role:collection_agent", ObjectPlan, ActionDelete)
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("role:auditor", ObjectBill, ActionView)
	require.NoError(t, err)

	reloaded, err := NewEnforcer(conn)
	require.NoError(t, err)

	ok, err := reloaded.Enforce("role:collection_agent", ObjectPlan, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reloaded.Enforce("role:auditor", ObjectBill, ActionView)
	require.NoError(t, err)
	assert.True(t, ok)
}
