package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/internal/providers/storage"
	"github.com/cablebill/cablebill/pkg/db"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Storage storage.Provider
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	storage storage.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("customer.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		storage: p.Storage,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	customer := &domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		Area:      strings.TrimSpace(req.Area),
		Phone:     phone,
		Email:     email,
		STBNumber: strings.TrimSpace(req.STBNumber),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Metadata != nil {
		customer.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, customer); err != nil {
		return nil, translateWriteErr(err)
	}

	s.log.Info("customer created", zap.String("customer_id", customer.ID.String()), zap.String("area", customer.Area))
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	customerID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, s.db, customerID)
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{
		Area:   strings.TrimSpace(req.Area),
		Search: strings.TrimSpace(req.Search),
		Active: req.Active,
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, pageInfo := pagination.Page(items, req.PageSize, func(c *domain.Customer) (string, time.Time) {
		return c.ID.String(), c.CreatedAt
	})

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		customers = append(customers, *item)
	}
	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (*domain.Customer, error) {
	customerID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.find(ctx, tx, customerID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			customer.Name = name
		}
		if req.Phone != nil {
			phone, err := normalizePhone(*req.Phone)
			if err != nil {
				return err
			}
			customer.Phone = phone
		}
		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return err
			}
			customer.Email = email
		}
		if req.Address != nil {
			customer.Address = strings.TrimSpace(*req.Address)
		}
		if req.Area != nil {
			customer.Area = strings.TrimSpace(*req.Area)
		}
		if req.STBNumber != nil {
			customer.STBNumber = strings.TrimSpace(*req.STBNumber)
		}
		if req.Metadata != nil {
			customer.Metadata = datatypes.JSONMap(req.Metadata)
		}
		customer.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, customer); err != nil {
			return translateWriteErr(err)
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetActive toggles the set-top box connection. Inactive customers are
// skipped by billing and cannot be assigned a plan.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*domain.Customer, error) {
	customerID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	customer, err := s.find(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	customer.Active = active
	customer.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return nil, err
	}

	s.log.Info("customer connection toggled",
		zap.String("customer_id", customer.ID.String()),
		zap.Bool("active", active),
	)
	return customer, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	customerID, err := parseID(id)
	if err != nil {
		return err
	}

	var removed *domain.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.find(ctx, tx, customerID)
		if err != nil {
			return err
		}
		bills, err := s.repo.CountBills(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if bills > 0 {
			return domain.ErrHasBillingHistory
		}
		if err := s.repo.DeleteSubscriptions(ctx, tx, customerID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, customerID); err != nil {
			return err
		}
		removed = customer
		return nil
	})
	if err != nil {
		return err
	}

	for _, kind := range []domain.DocumentKind{domain.DocumentIDProof, domain.DocumentAddressProof} {
		if _, key, _ := removed.Document(kind); key != "" {
			if err := s.storage.Delete(ctx, key); err != nil {
				s.log.Warn("failed to delete customer document",
					zap.String("customer_id", removed.ID.String()),
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// UploadDocument stores the file and resets the verification flag, replacing
// any previous upload of the same kind.
func (s *Service) UploadDocument(ctx context.Context, req domain.UploadDocumentRequest) (*domain.Customer, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return nil, err
	}
	if req.Kind != domain.DocumentIDProof && req.Kind != domain.DocumentAddressProof {
		return nil, domain.ErrInvalidDocument
	}
	if req.Body == nil {
		return nil, domain.ErrInvalidDocument
	}

	customer, err := s.find(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	key := documentKey(customer.ID, req.Kind, req.FileName, now)
	obj, err := s.storage.Put(ctx, key, req.ContentType, req.Body)
	if err != nil {
		return nil, errs.Unavailable(err)
	}

	_, previousKey, _ := customer.Document(req.Kind)
	customer.SetDocument(req.Kind, obj.URL, obj.Key, false)
	customer.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return nil, err
	}

	if previousKey != "" && previousKey != obj.Key {
		if err := s.storage.Delete(ctx, previousKey); err != nil {
			s.log.Warn("failed to delete replaced document", zap.String("key", previousKey), zap.Error(err))
		}
	}
	return customer, nil
}

func (s *Service) VerifyDocument(ctx context.Context, id string, kind domain.DocumentKind, verified bool) (*domain.Customer, error) {
	customerID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if kind != domain.DocumentIDProof && kind != domain.DocumentAddressProof {
		return nil, domain.ErrInvalidDocument
	}

	customer, err := s.find(ctx, s.db, customerID)
	if err != nil {
		return nil, err
	}
	url, key, _ := customer.Document(kind)
	if url == "" {
		return nil, domain.ErrDocumentNotFound
	}

	customer.SetDocument(kind, url, key, verified)
	customer.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func documentKey(id snowflake.ID, kind domain.DocumentKind, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := slug.Make(strings.TrimSuffix(path.Base(fileName), path.Ext(fileName)))
	if base == "" {
		base = string(kind)
	}
	return fmt.Sprintf("customers/%s/%s-%d-%s%s", id.String(), kind, now.Unix(), base, ext)
}

func translateWriteErr(err error) error {
	if !db.IsDuplicateKeyErr(err) {
		return err
	}
	if strings.Contains(db.DuplicateKeyConstraint(err), "stb_number") {
		return domain.ErrDuplicateSTBNumber
	}
	return domain.ErrDuplicateContact
}

func normalizePhone(value string) (string, error) {
	phone := strings.TrimSpace(value)
	if !phonePattern.MatchString(phone) {
		return "", domain.ErrInvalidPhone
	}
	return phone, nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", nil
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
