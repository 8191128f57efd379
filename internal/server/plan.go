package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	"github.com/gin-gonic/gin"
)

type createPlanRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"duration_days"`
	Active       *bool  `json:"active"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), plandomain.CreatePlanRequest{
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Active:       req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	activeOnly, err := parseOptionalBool("active", c.Query("active"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.planSvc.List(c.Request.Context(), plandomain.ListPlanRequest{
		ActiveOnly: activeOnly != nil && *activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlan(c *gin.Context) {
	resp, err := s.planSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePlanRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Price        *int64  `json:"price"`
	DurationDays *int    `json:"duration_days"`
	Active       *bool   `json:"active"`
}

func (s *Server) UpdatePlan(c *gin.Context) {
	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Update(c.Request.Context(), plandomain.UpdatePlanRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Active:       req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetPlanActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active must be a boolean"))
		return
	}

	resp, err := s.planSvc.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePlan(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.planSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionPlanDelete, "plan", id, nil)

	c.Status(http.StatusNoContent)
}
