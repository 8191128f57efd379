package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/clock"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/cablebill/cablebill/pkg/db"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         subscriptiondomain.Repository
	CustomerRepo customerdomain.Repository
	PlanRepo     plandomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         subscriptiondomain.Repository
	customerRepo customerdomain.Repository
	planRepo     plandomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("subscription.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		planRepo:     p.PlanRepo,
	}
}

// Assign subscribes the customer to the plan. Any subscription the customer
// already has active is deactivated in the same transaction.
func (s *Service) Assign(ctx context.Context, req subscriptiondomain.AssignRequest) (*subscriptiondomain.Subscription, error) {
	customerID, err := parseID(req.CustomerID, subscriptiondomain.ErrInvalidCustomerID)
	if err != nil {
		return nil, err
	}
	planID, err := parseID(req.PlanID, subscriptiondomain.ErrInvalidPlanID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	start := now
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = req.StartDate.UTC()
	}

	var created *subscriptiondomain.Subscription
	var replaced int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		if !customer.Active {
			return customerdomain.ErrInactive
		}

		plan, err := s.loadActivePlan(ctx, tx, planID)
		if err != nil {
			return err
		}

		replaced, err = s.repo.DeactivateActiveByCustomer(ctx, tx, customerID, now)
		if err != nil {
			return err
		}

		subscription := &subscriptiondomain.Subscription{
			ID:                  s.genID.Generate(),
			CustomerID:          customerID,
			PlanID:              plan.ID,
			StartDate:           start,
			EndDate:             subscriptiondomain.EndDate(start, plan.DurationDays),
			PriceAtSubscription: plan.Price,
			Active:              true,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.repo.Insert(ctx, tx, subscription); err != nil {
			if db.IsDuplicateKeyErr(err) {
				// another assignment for this customer committed first
				return subscriptiondomain.ErrConcurrentAssign
			}
			return err
		}
		created = subscription
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan assigned",
		zap.String("subscription_id", created.ID.String()),
		zap.String("customer_id", created.CustomerID.String()),
		zap.String("plan_id", created.PlanID.String()),
		zap.Int64("deactivated", replaced),
	)
	return created, nil
}

// ChangePlan moves the subscription to another plan, keeping its start date.
// Choosing the current plan leaves the subscription untouched.
func (s *Service) ChangePlan(ctx context.Context, req subscriptiondomain.ChangePlanRequest) (*subscriptiondomain.Subscription, error) {
	subscriptionID, err := parseID(req.SubscriptionID, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	planID, err := parseID(req.PlanID, subscriptiondomain.ErrInvalidPlanID)
	if err != nil {
		return nil, err
	}

	var updated *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.repo.FindByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return subscriptiondomain.ErrNotFound
		}
		if subscription.PlanID == planID {
			updated = subscription
			return nil
		}

		plan, err := s.loadActivePlan(ctx, tx, planID)
		if err != nil {
			return err
		}

		subscription.PlanID = plan.ID
		subscription.PriceAtSubscription = plan.Price
		subscription.EndDate = subscriptiondomain.EndDate(subscription.StartDate, plan.DurationDays)
		subscription.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, subscription); err != nil {
			return err
		}
		updated = subscription
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*subscriptiondomain.Subscription, error) {
	subscriptionID, err := parseID(id, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var updated *subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.repo.FindByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return subscriptiondomain.ErrNotFound
		}
		if subscription.Active {
			subscription.Active = false
			subscription.UpdatedAt = s.clock.Now()
			if err := s.repo.Update(ctx, tx, subscription); err != nil {
				return err
			}
		}
		updated = subscription
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*subscriptiondomain.Subscription, error) {
	subscriptionID, err := parseID(id, subscriptiondomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, subscriptiondomain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	filter := subscriptiondomain.ListSubscriptionFilter{Active: req.Active}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := parseID(req.CustomerID, subscriptiondomain.ErrInvalidCustomerID)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
		filter.CustomerID = customerID.Int64()
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	items, pageInfo := pagination.Page(items, req.PageSize, func(item *subscriptiondomain.Subscription) (string, time.Time) {
		return item.ID.String(), item.CreatedAt
	})

	subscriptions := make([]subscriptiondomain.Subscription, 0, len(items))
	for _, item := range items {
		subscriptions = append(subscriptions, *item)
	}
	return subscriptiondomain.ListSubscriptionResponse{PageInfo: pageInfo, Subscriptions: subscriptions}, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]subscriptiondomain.Subscription, error) {
	id, err := parseID(customerID, subscriptiondomain.ErrInvalidCustomerID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}

	items, err := s.repo.ListByCustomer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	subscriptions := make([]subscriptiondomain.Subscription, 0, len(items))
	for _, item := range items {
		subscriptions = append(subscriptions, *item)
	}
	return subscriptions, nil
}

func (s *Service) loadActivePlan(ctx context.Context, tx *gorm.DB, planID snowflake.ID) (*plandomain.Plan, error) {
	plan, err := s.planRepo.FindByID(ctx, tx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrNotFound
	}
	if !plan.Active {
		return nil, plandomain.ErrInactive
	}
	return plan, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return id, nil
}
