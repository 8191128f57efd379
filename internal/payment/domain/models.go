package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodCash   Method = "cash"
	MethodOnline Method = "online"
	MethodCard   Method = "card"
	MethodUPI    Method = "upi"
	MethodOther  Method = "other"
)

func ParseMethod(value string) (Method, bool) {
	switch m := Method(strings.ToLower(strings.TrimSpace(value))); m {
	case MethodCash, MethodOnline, MethodCard, MethodUPI, MethodOther:
		return m, true
	}
	return "", false
}

// Payment is immutable once written.
type Payment struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID    snowflake.ID `json:"customer_id" gorm:"not null"`
	BillID        snowflake.ID `json:"bill_id" gorm:"not null"`
	AmountPaid    int64        `json:"amount_paid" gorm:"column:amount_paid;not null"`
	PaymentMethod Method       `json:"payment_method" gorm:"column:payment_method;not null"`
	TransactionID *string      `json:"transaction_id,omitempty" gorm:"column:transaction_id"`
	ReceivedBy    snowflake.ID `json:"received_by" gorm:"column:received_by;not null"`
	PaymentDate   time.Time    `json:"payment_date" gorm:"column:payment_date;not null"`
	Notes         string       `json:"notes"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
