package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.authsvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) GetUser(c *gin.Context) {
	user, err := s.authsvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}

func (s *Server) UpdateUser(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	user, err := s.authsvc.Update(c.Request.Context(), principal, authdomain.UpdateUserRequest{
		ID:       id,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Active:   req.Active,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionUserUpdate, "user", id, map[string]any{
		"role_changed":     req.Role != nil,
		"password_changed": req.Password != nil,
	})

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (s *Server) SetUserActive(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active must be a boolean"))
		return
	}

	user, err := s.authsvc.SetActive(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")), *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionUserSetActive, "user", user.ID.String(), map[string]any{"active": user.Active})

	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (s *Server) DeleteUser(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.authsvc.Delete(c.Request.Context(), principal, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionUserDelete, "user", id, nil)

	c.Status(http.StatusNoContent)
}
