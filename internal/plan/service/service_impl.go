package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/clock"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	"github.com/cablebill/cablebill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  plandomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  plandomain.Repository
}

func New(p Params) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req plandomain.CreatePlanRequest) (*plandomain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, plandomain.ErrInvalidName
	}
	if req.Price < 0 {
		return nil, plandomain.ErrInvalidPrice
	}
	if req.DurationDays < 1 {
		return nil, plandomain.ErrInvalidDuration
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	entity := &plandomain.Plan{
		ID:           s.genID.Generate(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, plandomain.ErrNameTaken
		}
		return nil, err
	}

	s.log.Info("plan created", zap.String("plan_id", entity.ID.String()), zap.String("name", entity.Name))
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*plandomain.Plan, error) {
	planID, err := parseID(id)
	if err != nil {
		return nil, plandomain.ErrInvalidID
	}
	return s.find(ctx, s.db, planID)
}

func (s *Service) List(ctx context.Context, req plandomain.ListPlanRequest) ([]*plandomain.Plan, error) {
	items, err := s.repo.List(ctx, s.db, plandomain.ListPlanFilter{ActiveOnly: req.ActiveOnly})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, req plandomain.UpdatePlanRequest) (*plandomain.Plan, error) {
	planID, err := parseID(req.ID)
	if err != nil {
		return nil, plandomain.ErrInvalidID
	}

	var updated *plandomain.Plan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.find(ctx, tx, planID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return plandomain.ErrInvalidName
			}
			entity.Name = name
		}
		if req.Description != nil {
			entity.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			if *req.Price < 0 {
				return plandomain.ErrInvalidPrice
			}
			entity.Price = *req.Price
		}
		if req.DurationDays != nil {
			if *req.DurationDays < 1 {
				return plandomain.ErrInvalidDuration
			}
			entity.DurationDays = *req.DurationDays
		}
		if req.Active != nil {
			entity.Active = *req.Active
		}
		entity.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, entity); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return plandomain.ErrNameTaken
			}
			return err
		}
		updated = entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (*plandomain.Plan, error) {
	return s.Update(ctx, plandomain.UpdatePlanRequest{ID: id, Active: &active})
}

// Delete removes a plan that no active subscription references. Historical
// subscriptions keep their price snapshot, so only active ones block removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	planID, err := parseID(id)
	if err != nil {
		return plandomain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.find(ctx, tx, planID); err != nil {
			return err
		}

		count, err := s.repo.CountActiveSubscriptions(ctx, tx, planID)
		if err != nil {
			return err
		}
		if count > 0 {
			return plandomain.ErrHasActiveSubscriptions
		}

		if err := s.repo.Delete(ctx, tx, planID); err != nil {
			// inactive subscriptions still reference the row
			if db.IsForeignKeyErr(err) {
				return plandomain.ErrHasSubscriptions
			}
			return err
		}
		return nil
	})
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*plandomain.Plan, error) {
	entity, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, plandomain.ErrNotFound
	}
	return entity, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
