package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/internal/clock"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/notification"
	obsmetrics "github.com/cablebill/cablebill/internal/observability/metrics"
	paymentdomain "github.com/cablebill/cablebill/internal/payment/domain"
	"github.com/cablebill/cablebill/pkg/db"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxApplyAttempts = 5
	notifyTimeout    = 15 * time.Second
)

// errStalePaid signals that another payment moved paid_amount between our
// read and the compare-and-swap.
var errStalePaid = errors.New("bill paid amount changed concurrently")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         paymentdomain.Repository
	BillRepo     billdomain.Repository
	CustomerRepo customerdomain.Repository
	Notifier     notification.Dispatcher `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         paymentdomain.Repository
	billRepo     billdomain.Repository
	customerRepo customerdomain.Repository
	notifier     notification.Dispatcher
	obsMetrics   *obsmetrics.Metrics

	// pending tracks confirmation messages still in flight.
	pending sync.WaitGroup
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		billRepo:     p.BillRepo,
		customerRepo: p.CustomerRepo,
		notifier:     p.Notifier,
		obsMetrics:   p.ObsMetrics,
	}
}

// RecordPayment writes the payment and advances the bill's paid amount in
// one transaction. The bill update is a compare-and-swap on paid_amount, so
// concurrent payments against the same bill retry instead of losing updates.
func (s *Service) RecordPayment(ctx context.Context, req paymentdomain.RecordPaymentRequest) (*paymentdomain.Receipt, error) {
	if req.AmountPaid <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	billID, err := parseID(req.BillID, paymentdomain.ErrInvalidBillID)
	if err != nil {
		return nil, err
	}
	method, ok := paymentdomain.ParseMethod(req.Method)
	if !ok {
		return nil, paymentdomain.ErrInvalidMethod
	}
	var transactionID *string
	if txID := strings.TrimSpace(req.TransactionID); txID != "" {
		transactionID = &txID
	}

	var (
		receipt  *paymentdomain.Receipt
		customer *customerdomain.Customer
	)
	for attempt := 1; ; attempt++ {
		receipt, customer, err = s.apply(ctx, billID, method, transactionID, req)
		if !errors.Is(err, errStalePaid) {
			break
		}
		if attempt == maxApplyAttempts {
			s.log.Warn("payment contention exhausted retries",
				zap.String("bill_id", billID.String()),
				zap.Int("attempts", attempt),
			)
			return nil, paymentdomain.ErrConcurrentPayment
		}
	}
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPayment(ctx, string(method), req.AmountPaid)
	s.log.Info("payment recorded",
		zap.String("payment_id", receipt.Payment.ID.String()),
		zap.String("bill_id", receipt.Bill.ID.String()),
		zap.Int64("amount_paid", req.AmountPaid),
		zap.String("method", string(method)),
		zap.String("bill_status", string(receipt.Bill.Status)),
	)

	s.notifyAsync(ctx, customer, receipt)
	return receipt, nil
}

func (s *Service) apply(
	ctx context.Context,
	billID snowflake.ID,
	method paymentdomain.Method,
	transactionID *string,
	req paymentdomain.RecordPaymentRequest,
) (*paymentdomain.Receipt, *customerdomain.Customer, error) {
	var (
		receipt  *paymentdomain.Receipt
		customer *customerdomain.Customer
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.billRepo.FindByID(ctx, tx, billID)
		if err != nil {
			return err
		}
		if bill == nil {
			return billdomain.ErrNotFound
		}
		customer, err = s.customerRepo.FindByID(ctx, tx, bill.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		if bill.Settled() {
			return paymentdomain.ErrAlreadySettled
		}

		now := s.clock.Now()
		payment := paymentdomain.Payment{
			ID:            s.genID.Generate(),
			CustomerID:    bill.CustomerID,
			BillID:        bill.ID,
			AmountPaid:    req.AmountPaid,
			PaymentMethod: method,
			TransactionID: transactionID,
			ReceivedBy:    req.ReceivedBy,
			PaymentDate:   now,
			Notes:         strings.TrimSpace(req.Notes),
			CreatedAt:     now,
		}
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return paymentdomain.ErrDuplicateTransaction
			}
			return err
		}

		newPaid := bill.PaidAmount + req.AmountPaid
		status := billdomain.DeriveStatus(newPaid, bill.CurrentBalance, bill.DueDate, now)
		swapped, err := s.billRepo.ApplyPayment(ctx, tx, bill.ID, bill.PaidAmount, newPaid, status, now)
		if err != nil {
			return err
		}
		if !swapped {
			return errStalePaid
		}

		bill.PaidAmount = newPaid
		bill.Status = status
		bill.UpdatedAt = now
		receipt = &paymentdomain.Receipt{Payment: payment, Bill: *bill}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, customer, nil
}

// notifyAsync sends the payment confirmation after commit. It never blocks
// the caller and its failures are only logged.
func (s *Service) notifyAsync(ctx context.Context, customer *customerdomain.Customer, receipt *paymentdomain.Receipt) {
	if s.notifier == nil || customer == nil {
		return
	}
	msg := notification.Message{
		Channel: notification.ChannelWhatsApp,
		To:      customer.Phone,
		Subject: "Payment received for " + receipt.Bill.InvoiceNumber,
		Body: notification.PaymentText(notification.PaymentNotice{
			CustomerName:  customer.Name,
			InvoiceNumber: receipt.Bill.InvoiceNumber,
			Amount:        receipt.Payment.AmountPaid,
			Remaining:     receipt.RemainingDue(),
		}),
	}
	paymentID := receipt.Payment.ID.String()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(sendCtx, msg); err != nil {
			s.log.Warn("payment confirmation failed",
				zap.String("payment_id", paymentID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until in-flight confirmations finish. Used on shutdown.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) Get(ctx context.Context, id string) (*paymentdomain.Payment, error) {
	paymentID, err := parseID(id, paymentdomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	var filter paymentdomain.ListPaymentFilter
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID, paymentdomain.ErrInvalidCustomerID)
		if err != nil {
			return paymentdomain.ListPaymentResponse{}, err
		}
		filter.CustomerID = id.Int64()
	}
	if strings.TrimSpace(req.BillID) != "" {
		id, err := parseID(req.BillID, paymentdomain.ErrInvalidBillID)
		if err != nil {
			return paymentdomain.ListPaymentResponse{}, err
		}
		filter.BillID = id.Int64()
	}
	if strings.TrimSpace(req.Method) != "" {
		method, ok := paymentdomain.ParseMethod(req.Method)
		if !ok {
			return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidMethod
		}
		filter.Method = method
	}

	from, err := parseDate(req.From, false)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}
	to, err := parseDate(req.To, true)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidDateRange
	}
	filter.From, filter.To = from, to

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}

	items, pageInfo := pagination.Page(items, req.PageSize, func(p *paymentdomain.Payment) (string, time.Time) {
		return p.ID.String(), p.CreatedAt
	})
	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		payments = append(payments, *item)
	}
	return paymentdomain.ListPaymentResponse{PageInfo: pageInfo, Payments: payments}, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(value string, endOfRange bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, paymentdomain.ErrInvalidDateRange
	}
	if endOfRange {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return id, nil
}
