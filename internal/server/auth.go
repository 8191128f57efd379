package server

import (
	"net/http"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if ok, wait := s.loginLimiter.Allow(c.Request.Context(), c.ClientIP()); !ok {
		AbortWithError(c, &TooManyRequestsError{RetryAfter: wait})
		return
	}

	resp, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.Me(c.Request.Context(), principal)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (s *Server) Register(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authsvc.Register(c.Request.Context(), &principal, authdomain.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionUserRegister, "user", user.ID.String(), map[string]any{
		"username": user.Username,
		"role":     string(user.Role),
	})

	c.JSON(http.StatusCreated, gin.H{"data": user})
}
