package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cablebill/cablebill/internal/audit"
	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	"github.com/cablebill/cablebill/internal/auth"
	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/cablebill/cablebill/internal/authorization"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	billingdomain "github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/observability"
	obslogger "github.com/cablebill/cablebill/internal/observability/logger"
	obsmetrics "github.com/cablebill/cablebill/internal/observability/metrics"
	obstracing "github.com/cablebill/cablebill/internal/observability/tracing"
	"github.com/cablebill/cablebill/internal/payment"
	paymentdomain "github.com/cablebill/cablebill/internal/payment/domain"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	"github.com/cablebill/cablebill/internal/ratelimit"
	"github.com/cablebill/cablebill/internal/seed"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the HTTP API. The billing domain services come from
// app.Billing.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	audit.Module,
	payment.Module,
	ratelimit.Module,
	seed.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	planSvc         plandomain.Service
	customerSvc     customerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	billSvc         billdomain.Service
	paymentSvc      paymentdomain.Service
	billingEngine   billingdomain.Engine
	billingCfg      *config.BillingConfigHolder
	clock           clock.Clock
	auditSvc        auditdomain.Service
	loginLimiter    *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	PlanSvc         plandomain.Service
	CustomerSvc     customerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	BillSvc         billdomain.Service
	PaymentSvc      paymentdomain.Service
	BillingEngine   billingdomain.Engine
	BillingCfg      *config.BillingConfigHolder
	Clock           clock.Clock
	AuditSvc        auditdomain.Service    `optional:"true"`
	LoginLimiter    *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		planSvc:         p.PlanSvc,
		customerSvc:     p.CustomerSvc,
		subscriptionSvc: p.SubscriptionSvc,
		billSvc:         p.BillSvc,
		paymentSvc:      p.PaymentSvc,
		billingEngine:   p.BillingEngine,
		billingCfg:      p.BillingCfg,
		clock:           p.Clock,
		auditSvc:        p.AuditSvc,
		loginLimiter:    p.LoginLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/api/auth")

	authGroup.POST("/login", s.Login)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
	authGroup.POST("/register", s.AuthRequired(), s.authorize(authorization.ObjectUser, authorization.ActionCreate), s.Register)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/plans", s.authorize(authorization.ObjectPlan, authorization.ActionView), s.ListPlans)
	api.POST("/plans", s.authorize(authorization.ObjectPlan, authorization.ActionCreate), s.CreatePlan)
	api.GET("/plans/:id", s.authorize(authorization.ObjectPlan, authorization.ActionView), s.GetPlan)
	api.PUT("/plans/:id", s.authorize(authorization.ObjectPlan, authorization.ActionUpdate), s.UpdatePlan)
	api.PATCH("/plans/:id/active", s.authorize(authorization.ObjectPlan, authorization.ActionUpdate), s.SetPlanActive)
	api.DELETE("/plans/:id", s.authorize(authorization.ObjectPlan, authorization.ActionDelete), s.DeletePlan)

	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.POST("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomer)
	api.PUT("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)
	api.PATCH("/customers/:id/active", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.SetCustomerActive)
	api.DELETE("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionDelete), s.DeleteCustomer)
	api.POST("/customers/:id/documents/:kind", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UploadCustomerDocument)
	api.PATCH("/customers/:id/documents/:kind/verify", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.VerifyCustomerDocument)
	api.GET("/customers/:id/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionView), s.ListCustomerSubscriptions)
	api.GET("/customers/:id/bills", s.authorize(authorization.ObjectBill, authorization.ActionView), s.ListCustomerBills)

	api.GET("/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionView), s.ListSubscriptions)
	api.POST("/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionAssign), s.AssignSubscription)
	api.GET("/subscriptions/:id", s.authorize(authorization.ObjectSubscription, authorization.ActionView), s.GetSubscription)
	api.PUT("/subscriptions/:id/plan", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionChangePlan), s.ChangeSubscriptionPlan)
	api.POST("/subscriptions/:id/deactivate", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionDeactivate), s.DeactivateSubscription)

	api.GET("/bills", s.authorize(authorization.ObjectBill, authorization.ActionView), s.ListBills)
	api.GET("/bills/:id", s.authorize(authorization.ObjectBill, authorization.ActionView), s.GetBill)
	api.GET("/bills/:id/pdf", s.authorize(authorization.ObjectBill, authorization.ActionBillPDF), s.DownloadBillPDF)
	api.POST("/bills/:id/send", s.authorize(authorization.ObjectBill, authorization.ActionBillSend), s.SendBill)

	api.POST("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)
	api.GET("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.ListPayments)
	api.GET("/payments/:id", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.GetPayment)

	api.POST("/billing/runs", s.authorize(authorization.ObjectBillingRun, authorization.ActionBillingRunStart), s.StartBillingRun)
	api.GET("/billing/runs", s.authorize(authorization.ObjectBillingRun, authorization.ActionView), s.ListBillingRuns)

	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.GET("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionView), s.GetUser)
	api.PUT("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionUpdate), s.UpdateUser)
	api.PATCH("/users/:id/active", s.authorize(authorization.ObjectUser, authorization.ActionUserSetActive), s.SetUserActive)
	api.DELETE("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionDelete), s.DeleteUser)

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
