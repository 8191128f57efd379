package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/internal/bill/format"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/notification"
	"github.com/cablebill/cablebill/internal/observability/metrics"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	"github.com/cablebill/cablebill/internal/providers/pdf"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	Config           config.Config
	Repo             domain.Repository
	CustomerRepo     customerdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	PlanRepo         plandomain.Repository
	Renderer         pdf.Renderer
	Notifier         notification.Dispatcher
	Metrics          *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	company          config.CompanyConfig
	repo             domain.Repository
	customerRepo     customerdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	planRepo         plandomain.Repository
	renderer         pdf.Renderer
	notifier         notification.Dispatcher
	metrics          *metrics.BillingMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("bill.service"),
		clock:            p.Clock,
		company:          p.Config.Company,
		repo:             p.Repo,
		customerRepo:     p.CustomerRepo,
		subscriptionRepo: p.SubscriptionRepo,
		planRepo:         p.PlanRepo,
		renderer:         p.Renderer,
		notifier:         p.Notifier,
		metrics:          p.Metrics,
	}
}

// Get returns the bill with its status derived as of now, so a bill past its
// due date reads as overdue even before the refresh job persists it.
func (s *Service) Get(ctx context.Context, id string) (*domain.Bill, error) {
	billID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	bill, err := s.find(ctx, billID)
	if err != nil {
		return nil, err
	}
	bill.Refresh(s.clock.Now())
	return bill, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBillRequest) (domain.ListBillResponse, error) {
	now := s.clock.Now()
	filter := domain.ListBillFilter{Now: now}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := parseID(req.CustomerID, domain.ErrInvalidCustomerID)
		if err != nil {
			return domain.ListBillResponse{}, err
		}
		filter.CustomerID = customerID.Int64()
	}
	if strings.TrimSpace(req.Status) != "" {
		status, ok := domain.ParseStatus(strings.TrimSpace(req.Status))
		if !ok {
			return domain.ListBillResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.Period) != "" {
		month, err := domain.ParsePeriod(req.Period)
		if err != nil {
			return domain.ListBillResponse{}, err
		}
		filter.BillMonth = &month
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return domain.ListBillResponse{}, err
	}

	items, pageInfo := pagination.Page(items, req.PageSize, func(b *domain.Bill) (string, time.Time) {
		return b.ID.String(), b.CreatedAt
	})

	bills := make([]domain.Bill, 0, len(items))
	for _, item := range items {
		item.Refresh(now)
		bills = append(bills, *item)
	}
	return domain.ListBillResponse{PageInfo: pageInfo, Bills: bills}, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Bill, error) {
	id, err := parseID(customerID, domain.ErrInvalidCustomerID)
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

	items, err := s.repo.List(ctx, s.db, domain.ListBillFilter{CustomerID: id.Int64()}, pagination.Pagination{PageSize: 250})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bills := make([]domain.Bill, 0, len(items))
	for _, item := range items {
		item.Refresh(now)
		bills = append(bills, *item)
	}
	return bills, nil
}

// Snapshot loads the bill together with its customer, subscription and plan.
func (s *Service) Snapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	billID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	bill, err := s.find(ctx, billID)
	if err != nil {
		return nil, err
	}

	var (
		customer     *customerdomain.Customer
		subscription *subscriptiondomain.Subscription
		plan         *plandomain.Plan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customer, err = s.customerRepo.FindByID(gctx, s.db, bill.CustomerID)
		return err
	})
	g.Go(func() error {
		var err error
		subscription, err = s.subscriptionRepo.FindByID(gctx, s.db, bill.SubscriptionID)
		if err != nil || subscription == nil {
			return err
		}
		plan, err = s.planRepo.FindByID(gctx, s.db, subscription.PlanID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if customer == nil || subscription == nil || plan == nil {
		return nil, domain.ErrSnapshotIncomplete
	}

	bill.Refresh(s.clock.Now())
	return &domain.Snapshot{
		Bill:         *bill,
		Customer:     *customer,
		Subscription: *subscription,
		Plan:         *plan,
	}, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (*domain.Document, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := s.renderer.RenderInvoice(ctx, s.invoiceData(snap))
	if err != nil {
		return nil, err
	}
	return &domain.Document{
		FileName:    slug.Make("invoice "+snap.Bill.InvoiceNumber) + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// SendInvoice delivers the bill summary to the customer over the chosen
// channel. Delivery failures are returned; bill state is never touched.
func (s *Service) SendInvoice(ctx context.Context, req domain.SendInvoiceRequest) error {
	channel, ok := notification.ParseChannel(req.Method)
	if !ok {
		return notification.ErrUnsupportedChannel
	}
	snap, err := s.Snapshot(ctx, req.BillID)
	if err != nil {
		return err
	}

	msg := InvoiceMessage(channel, snap)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn("invoice delivery failed",
			zap.String("bill_id", snap.Bill.ID.String()),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return err
	}

	s.log.Info("invoice sent",
		zap.String("bill_id", snap.Bill.ID.String()),
		zap.String("invoice_number", snap.Bill.InvoiceNumber),
		zap.String("channel", string(channel)),
	)
	return nil
}

func (s *Service) RefreshOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.metrics.AddOverdue(n)
	if n > 0 {
		s.log.Info("bills marked overdue", zap.Int64("count", n))
	}
	return n, nil
}

// InvoiceMessage builds the customer notice for a bill snapshot.
func InvoiceMessage(channel notification.Channel, snap *domain.Snapshot) notification.Message {
	to := snap.Customer.Phone
	if channel == notification.ChannelEmail {
		to = snap.Customer.Email
	}
	return notification.Message{
		Channel: channel,
		To:      to,
		Subject: notification.InvoiceSubject(snap.Bill.InvoiceNumber),
		Body: notification.InvoiceText(notification.InvoiceNotice{
			CustomerName:  snap.Customer.Name,
			PlanName:      snap.Plan.Name,
			InvoiceNumber: snap.Bill.InvoiceNumber,
			Amount:        snap.Bill.Outstanding(),
			DueDate:       snap.Bill.DueDate,
		}),
	}
}

func (s *Service) invoiceData(snap *domain.Snapshot) pdf.InvoiceData {
	b := snap.Bill
	return pdf.InvoiceData{
		CompanyName:     s.company.Name,
		CompanyAddress:  s.company.Address,
		CompanyPhone:    s.company.Phone,
		CompanyEmail:    s.company.Email,
		InvoiceNumber:   b.InvoiceNumber,
		BillMonth:       format.Month(b.BillMonth),
		IssueDate:       format.Date(b.CreatedAt),
		DueDate:         format.Date(b.DueDate),
		Status:          string(b.Status),
		CustomerName:    snap.Customer.Name,
		CustomerAddress: snap.Customer.Address,
		CustomerArea:    snap.Customer.Area,
		CustomerPhone:   snap.Customer.Phone,
		STBNumber:       snap.Customer.STBNumber,
		PlanName:        snap.Plan.Name,
		PlanDescription: snap.Plan.Description,
		CurrentCharges:  b.TotalAmount,
		PreviousBalance: b.PreviousBalance,
		TotalDue:        b.CurrentBalance,
		PaidAmount:      b.PaidAmount,
		Remaining:       b.Outstanding(),
	}
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*domain.Bill, error) {
	bill, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}
	return bill, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return id, nil
}
