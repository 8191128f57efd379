package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusGenerated     Status = "generated"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
)

// UnsettledStatuses are the statuses whose balance can carry into the next bill.
var UnsettledStatuses = []Status{StatusGenerated, StatusPartiallyPaid, StatusOverdue}

func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusGenerated, StatusPartiallyPaid, StatusPaid, StatusOverdue:
		return s, true
	}
	return "", false
}

// Bill is the invoice for one subscription and billing month. CurrentBalance
// is fixed at creation; only payments move PaidAmount.
type Bill struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID      snowflake.ID `gorm:"column:customer_id;not null" json:"customer_id"`
	SubscriptionID  snowflake.ID `gorm:"column:subscription_id;not null" json:"subscription_id"`
	BillMonth       time.Time    `gorm:"column:bill_month;not null" json:"bill_month"`
	DueDate         time.Time    `gorm:"column:due_date;not null" json:"due_date"`
	TotalAmount     int64        `gorm:"column:total_amount;not null" json:"total_amount"`
	PreviousBalance int64        `gorm:"column:previous_balance;not null" json:"previous_balance"`
	CurrentBalance  int64        `gorm:"column:current_balance;not null" json:"current_balance"`
	PaidAmount      int64        `gorm:"column:paid_amount;not null" json:"paid_amount"`
	Status          Status       `gorm:"not null" json:"status"`
	InvoiceNumber   string       `gorm:"column:invoice_number;not null" json:"invoice_number"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Bill) TableName() string { return "bills" }

func (b *Bill) Remaining() int64 {
	return b.CurrentBalance - b.PaidAmount
}

func (b *Bill) Settled() bool {
	return b.Remaining() <= 0
}

// Outstanding is the amount that carries into the next bill; never negative.
func (b *Bill) Outstanding() int64 {
	if r := b.Remaining(); r > 0 {
		return r
	}
	return 0
}

// Refresh re-derives the cached status as of now.
func (b *Bill) Refresh(now time.Time) {
	b.Status = DeriveStatus(b.PaidAmount, b.CurrentBalance, b.DueDate, now)
}

// DeriveStatus is the bill state machine:
//
//	remaining <= 0                 paid
//	paid > 0                       partially_paid
//	paid == 0 and now after due    overdue
//	otherwise                      generated
func DeriveStatus(paid, current int64, due, now time.Time) Status {
	switch {
	case current-paid <= 0:
		return StatusPaid
	case paid > 0:
		return StatusPartiallyPaid
	case now.After(due):
		return StatusOverdue
	default:
		return StatusGenerated
	}
}
