package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectPlan         = "plan"
	ObjectCustomer     = "customer"
	ObjectSubscription = "subscription"
	ObjectBill         = "bill"
	ObjectPayment      = "payment"
	ObjectBillingRun   = "billing_run"
	ObjectUser         = "user"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionSubscriptionAssign     = "assign"
	ActionSubscriptionChangePlan = "change_plan"
	ActionSubscriptionDeactivate = "deactivate"

	ActionBillSend = "send"
	ActionBillPDF  = "pdf"

	ActionPaymentRecord = "record"

	ActionBillingRunStart = "start"

	ActionUserSetActive = "set_active"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidObject = errors.New("invalid object")
	ErrInvalidAction = errors.New("invalid action")
)

type Service interface {
	Authorize(ctx context.Context, role string, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and reconciles the
// built-in role policies with the ones compiled into the binary.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := syncPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subject(role string) string {
	return "role:" + role
}

func builtinPolicies() [][]string {
	agent := subject("collection_agent")
	return [][]string{
		{subject("admin"), "*", "*"},

		{agent, ObjectPlan, ActionView},
		{agent, ObjectCustomer, ActionView},
		{agent, ObjectCustomer, ActionCreate},
		{agent, ObjectCustomer, ActionUpdate},
		{agent, ObjectSubscription, ActionView},
		{agent, ObjectSubscription, ActionSubscriptionAssign},
		{agent, ObjectBill, ActionView},
		{agent, ObjectBill, ActionBillSend},
		{agent, ObjectBill, ActionBillPDF},
		{agent, ObjectPayment, ActionPaymentRecord},
		{agent, ObjectUser, ActionUpdate},
	}
}

// syncPolicies adds missing built-in policies and removes stale ones that an
// older binary granted to a built-in role.
func syncPolicies(enforcer *casbin.SyncedEnforcer) error {
	want := make(map[string]struct{})
	managed := make(map[string]struct{})
	for _, policy := range builtinPolicies() {
		want[strings.Join(policy, "|")] = struct{}{}
		managed[policy[0]] = struct{}{}
	}

	existing, err := enforcer.GetPolicy()
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 3 {
			continue
		}
		if _, ok := managed[rule[0]]; !ok {
			continue
		}
		if _, ok := want[strings.Join(rule[:3], "|")]; ok {
			continue
		}
		if _, err := enforcer.RemovePolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}

	for _, policy := range builtinPolicies() {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
