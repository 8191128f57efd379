package server

import (
	"fmt"
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListBills(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
		Period     string `form:"period"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billSvc.List(c.Request.Context(), billdomain.ListBillRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.TrimSpace(query.Status),
		Period:     strings.TrimSpace(query.Period),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetBill returns the bill with its customer, subscription and plan context.
func (s *Server) GetBill(c *gin.Context) {
	resp, err := s.billSvc.Snapshot(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadBillPDF(c *gin.Context) {
	doc, err := s.billSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

type sendBillRequest struct {
	Method string `json:"method"`
}

func (s *Server) SendBill(c *gin.Context) {
	var req sendBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	method := strings.ToLower(strings.TrimSpace(req.Method))
	err := s.billSvc.SendInvoice(c.Request.Context(), billdomain.SendInvoiceRequest{
		BillID: id,
		Method: method,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionBillSend, "bill", id, map[string]any{"method": method})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"bill_id": id,
		"method":  method,
		"sent":    true,
	}})
}
