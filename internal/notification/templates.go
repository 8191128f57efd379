package notification

import (
	"fmt"
	"time"

	"github.com/cablebill/cablebill/internal/bill/format"
)

type InvoiceNotice struct {
	CustomerName  string
	PlanName      string
	InvoiceNumber string
	Amount        int64
	DueDate       time.Time
}

func InvoiceText(n InvoiceNotice) string {
	return fmt.Sprintf("Dear %s,\nYour bill for %s (Invoice No: %s) is Rs. %s. Due Date: %s. Thank you!",
		n.CustomerName, n.PlanName, n.InvoiceNumber, format.Amount(n.Amount), format.Date(n.DueDate))
}

func InvoiceSubject(invoiceNumber string) string {
	return "Your cable bill " + invoiceNumber
}

type PaymentNotice struct {
	CustomerName  string
	InvoiceNumber string
	Amount        int64
	Remaining     int64
}

func PaymentText(n PaymentNotice) string {
	return fmt.Sprintf("Dear %s,\n\nThank you for your payment of ₹%s towards your bill (Invoice: %s). Your remaining balance is ₹%s.\n\nRegards,\nCable Billing Team",
		n.CustomerName, format.Amount(n.Amount), n.InvoiceNumber, format.Amount(n.Remaining))
}
