package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	paymentdomain "github.com/cablebill/cablebill/internal/payment/domain"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type recordPaymentRequest struct {
	BillID        string `json:"bill_id"`
	AmountPaid    int64  `json:"amount_paid"`
	Method        string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
	Notes         string `json:"notes"`
}

type receiptResponse struct {
	*paymentdomain.Receipt
	RemainingDue int64 `json:"remaining_due"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	receipt, err := s.paymentSvc.RecordPayment(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		BillID:        strings.TrimSpace(req.BillID),
		AmountPaid:    req.AmountPaid,
		Method:        strings.ToLower(strings.TrimSpace(req.Method)),
		TransactionID: strings.TrimSpace(req.TransactionID),
		Notes:         strings.TrimSpace(req.Notes),
		ReceivedBy:    principal.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionPaymentRecord, "payment", receipt.Payment.ID.String(), map[string]any{
		"bill_id":        receipt.Bill.ID.String(),
		"amount_paid":    receipt.Payment.AmountPaid,
		"payment_method": string(receipt.Payment.PaymentMethod),
		"transaction_id": strings.TrimSpace(req.TransactionID),
	})

	c.JSON(http.StatusCreated, gin.H{"data": receiptResponse{
		Receipt:      receipt,
		RemainingDue: receipt.RemainingDue(),
	}})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		BillID     string `form:"bill_id"`
		Method     string `form:"payment_method"`
		From       string `form:"from"`
		To         string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListPaymentRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		CustomerID: strings.TrimSpace(query.CustomerID),
		BillID:     strings.TrimSpace(query.BillID),
		Method:     strings.ToLower(strings.TrimSpace(query.Method)),
		From:       strings.TrimSpace(query.From),
		To:         strings.TrimSpace(query.To),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
