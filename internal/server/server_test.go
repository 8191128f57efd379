package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	auditrepository "github.com/cablebill/cablebill/internal/audit/repository"
	auditservice "github.com/cablebill/cablebill/internal/audit/service"
	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/cablebill/cablebill/internal/authorization"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	billingdomain "github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/errs"
	paymentdomain "github.com/cablebill/cablebill/internal/payment/domain"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	"github.com/cablebill/cablebill/internal/ratelimit"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/cablebill/cablebill/internal/testutil"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminToken = "admin-token"
	agentToken = "agent-token"

	adminID = snowflake.ID(100)
	agentID = snowflake.ID(200)
)

type fakeAuthService struct {
	authdomain.Service
}

func (f *fakeAuthService) Authenticate(ctx context.Context, token string) (*authdomain.Principal, error) {
	switch token {
	case adminToken:
		return &authdomain.Principal{UserID: adminID, Role: authdomain.RoleAdmin}, nil
	case agentToken:
		return &authdomain.Principal{UserID: agentID, Role: authdomain.RoleCollectionAgent}, nil
	}
	return nil, authdomain.ErrInvalidToken
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if req.Username != "admin" || req.Password != "secret1" {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.LoginResult{
		User:  &authdomain.User{ID: adminID, Username: "admin", Role: authdomain.RoleAdmin, Active: true},
		Token: adminToken,
	}, nil
}

type fakePlanService struct {
	plandomain.Service
	err error
}

func (f *fakePlanService) Get(ctx context.Context, id string) (*plandomain.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &plandomain.Plan{ID: snowflake.ID(1), Name: "Basic", Price: 30000, DurationDays: 30, Active: true}, nil
}

func (f *fakePlanService) List(ctx context.Context, req plandomain.ListPlanRequest) ([]*plandomain.Plan, error) {
	return []*plandomain.Plan{}, f.err
}

type fakePaymentService struct {
	paymentdomain.Service
	last *paymentdomain.RecordPaymentRequest
	err  error
}

func (f *fakePaymentService) RecordPayment(ctx context.Context, req paymentdomain.RecordPaymentRequest) (*paymentdomain.Receipt, error) {
	f.last = &req
	if f.err != nil {
		return nil, f.err
	}
	return &paymentdomain.Receipt{
		Payment: paymentdomain.Payment{ID: snowflake.ID(9), AmountPaid: req.AmountPaid, ReceivedBy: req.ReceivedBy},
		Bill:    billdomain.Bill{ID: snowflake.ID(7), TotalAmount: 30000, CurrentBalance: 30000, PaidAmount: req.AmountPaid},
	}, nil
}

type fakeEngine struct {
	billingdomain.Engine
	last    *billingdomain.RunRequest
	lastErr error
}

func (f *fakeEngine) Run(ctx context.Context, req billingdomain.RunRequest) (*billingdomain.RunResult, error) {
	f.last = &req
	f.lastErr = ctx.Err()
	return &billingdomain.RunResult{Period: billdomain.PeriodOf(billdomain.MonthStart(req.Period)), Trigger: req.Trigger}, nil
}

type testServer struct {
	engine   *gin.Engine
	plans    *fakePlanService
	payments *fakePaymentService
	billing  *fakeEngine
	audit    auditdomain.Service
}

func newTestServer(t *testing.T, opts ...func(*ServerParams)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		engine:   r,
		plans:    &fakePlanService{},
		payments: &fakePaymentService{},
		billing:  &fakeEngine{},
		audit:    auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: testutil.NewNode(t),
			Clock: clock.SystemClock{},
			Repo:  auditrepository.Provide(),
		}),
	}
	params := ServerParams{
		Gin:             r,
		Log:             zap.NewNop(),
		Authsvc:         &fakeAuthService{},
		AuthzSvc:        authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		PlanSvc:         ts.plans,
		CustomerSvc:     struct{ customerdomain.Service }{},
		SubscriptionSvc: struct{ subscriptiondomain.Service }{},
		BillSvc:         struct{ billdomain.Service }{},
		PaymentSvc:      ts.payments,
		BillingEngine:   ts.billing,
		BillingCfg:      config.NewStaticBillingConfig(config.DefaultBillingConfig()),
		Clock:           clock.NewFakeClock(time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)),
		AuditSvc:        ts.audit,
	}
	for _, opt := range opts {
		opt(&params)
	}
	NewServer(params)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func errorField(t *testing.T, payload map[string]any, key string) any {
	t.Helper()
	e, ok := payload["error"].(map[string]any)
	require.True(t, ok, "missing error payload: %v", payload)
	return e[key]
}

func TestRequestsWithoutTokenAreUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorField(t, body, "type"))

	rec, body = ts.do(t, http.MethodGet, "/api/plans", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", errorField(t, body, "code"))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, adminToken, data["token"])

	rec, body = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorField(t, body, "code"))

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginIsThrottledPerClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := ratelimit.NewLoginLimiter(ratelimit.LoginParams{
		Client: client,
		Config: config.Config{AuthLoginBurst: 2, AuthLoginPerMinute: 1},
		Log:    zap.NewNop(),
	})
	ts := newTestServer(t, func(p *ServerParams) { p.LoginLimiter = limiter })

	creds := map[string]string{"username": "admin", "password": "wrong"}
	for i := 0; i < 2; i++ {
		rec, _ := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, body := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too_many_attempts", errorField(t, body, "code"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCollectionAgentCannotStartBillingRun(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/api/billing/runs", agentToken, map[string]string{"period": "2024-02"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorField(t, body, "type"))
	assert.Nil(t, ts.billing.last)
}

func TestAdminStartsBillingRunForCurrentMonth(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/api/billing/runs", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, ts.billing.last)
	assert.Equal(t, billingdomain.TriggerManual, ts.billing.last.Trigger)
	// 20:00 UTC on Jan 31 is already February in Asia/Kolkata.
	assert.Equal(t, "2024-02", body["data"].(map[string]any)["period"])

	rec, body = ts.do(t, http.MethodPost, "/api/billing/runs", adminToken, map[string]string{"period": "2023-11"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2023-11", body["data"].(map[string]any)["period"])

	rec, body = ts.do(t, http.MethodPost, "/api/billing/runs", adminToken, map[string]string{"period": "November"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorField(t, body, "type"))
}

func TestBillingRunSurvivesClientDisconnect(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/runs", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, ts.billing.last)
	assert.NoError(t, ts.billing.lastErr)
}

func TestRecordPaymentAttributesCurrentUser(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/api/payments", agentToken, map[string]any{
		"bill_id":        "7",
		"amount_paid":    10000,
		"payment_method": "UPI",
		"transaction_id": "TXN-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, ts.payments.last)
	assert.Equal(t, agentID, ts.payments.last.ReceivedBy)
	assert.Equal(t, "upi", ts.payments.last.Method)
	assert.Equal(t, "7", ts.payments.last.BillID)

	data := body["data"].(map[string]any)
	assert.EqualValues(t, 20000, data["remaining_due"])

	logs, err := ts.audit.List(context.Background(), auditdomain.ListAuditLogRequest{Action: auditdomain.ActionPaymentRecord})
	require.NoError(t, err)
	require.Len(t, logs.AuditLogs, 1)
	entry := logs.AuditLogs[0]
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, agentID.String(), *entry.ActorID)
	assert.Equal(t, "TXN-****", entry.Metadata["transaction_id"])
}

func TestAuditLogsAreAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/audit-logs", agentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := ts.do(t, http.MethodGet, "/api/audit-logs", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Empty(t, data["audit_logs"])
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
		code   string
	}{
		{"settled", paymentdomain.ErrAlreadySettled, http.StatusBadRequest, "invalid_state", "bill_already_settled"},
		{"duplicate", paymentdomain.ErrDuplicateTransaction, http.StatusConflict, "conflict", "duplicate_transaction_id"},
		{"not found", billdomain.ErrNotFound, http.StatusNotFound, "not_found", "bill_not_found"},
		{"unavailable", errs.Unavailable(errors.New("connection refused")), http.StatusServiceUnavailable, "service_unavailable", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.payments.err = tc.err

			rec, body := ts.do(t, http.MethodPost, "/api/payments", adminToken, map[string]any{
				"bill_id":        "7",
				"amount_paid":    100,
				"payment_method": "cash",
			})
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.typ, errorField(t, body, "type"))
			if tc.code != "" {
				assert.Equal(t, tc.code, errorField(t, body, "code"))
			}
		})
	}
}

func TestInvalidInputReportsField(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.err = paymentdomain.ErrInvalidAmount

	rec, body := ts.do(t, http.MethodPost, "/api/payments", adminToken, map[string]any{
		"bill_id":        "7",
		"amount_paid":    0,
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorField(t, body, "type"))

	details := errorField(t, body, "errors").([]any)
	require.Len(t, details, 1)
	first := details[0].(map[string]any)
	assert.Equal(t, "amount", first["field"])
	assert.Equal(t, "invalid_amount", first["code"])
}

func TestPlanRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/plans/1", agentToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/plans", agentToken, map[string]any{"name": "Gold", "price": 50000, "duration_days": 30})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := ts.do(t, http.MethodGet, "/api/plans?active=maybe", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorField(t, body, "type"))

	ts.plans.err = plandomain.ErrNotFound
	rec, body = ts.do(t, http.MethodGet, "/api/plans/404", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "plan_not_found", errorField(t, body, "code"))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/api/nope", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorField(t, body, "type"))
}
