package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type assignSubscriptionRequest struct {
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
	StartDate  string `json:"start_date"`
}

func (s *Server) AssignSubscription(c *gin.Context) {
	var req assignSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.Assign(c.Request.Context(), subscriptiondomain.AssignRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		PlanID:     strings.TrimSpace(req.PlanID),
		StartDate:  startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Active     string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool("active", query.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListSubscriptionRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		CustomerID: strings.TrimSpace(query.CustomerID),
		Active:     active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type changePlanRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) ChangeSubscriptionPlan(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.ChangePlan(c.Request.Context(), subscriptiondomain.ChangePlanRequest{
		SubscriptionID: strings.TrimSpace(c.Param("id")),
		PlanID:         strings.TrimSpace(req.PlanID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionSubscriptionDeactivate, "subscription", resp.ID.String(), map[string]any{
		"customer_id": resp.CustomerID.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
