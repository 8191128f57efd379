package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	billingdomain "github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

const defaultRunListLimit = 20

type startBillingRunRequest struct {
	Period string `json:"period"`
}

// StartBillingRun bills the requested period synchronously. An empty period
// means the current month in the billing timezone.
func (s *Server) StartBillingRun(c *gin.Context) {
	var req startBillingRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	period := billdomain.MonthStart(s.clock.Now().In(s.billingCfg.Get().Location()))
	if strings.TrimSpace(req.Period) != "" {
		parsed, err := billdomain.ParsePeriod(req.Period)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		period = parsed
	}

	// A dropped client must not abort the batch halfway.
	resp, err := s.billingEngine.Run(context.WithoutCancel(c.Request.Context()), billingdomain.RunRequest{
		Period:  period,
		Trigger: billingdomain.TriggerManual,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionBillingRunStart, "billing_run", resp.RunID, map[string]any{
		"period":    resp.Period,
		"status":    resp.Status,
		"generated": resp.Generated,
		"failed":    resp.Failed,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillingRuns(c *gin.Context) {
	limit := defaultRunListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	resp, err := s.billingEngine.ListRuns(c.Request.Context(), c.Query("period"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
