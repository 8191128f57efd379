package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/cablebill/cablebill/internal/audit/domain"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var query struct {
		pagination.Pagination
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		ActorID    string `form:"actor_id"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseOptionalDate("start_at", query.StartAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	endAt, err := parseOptionalDate("end_at", query.EndAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorID:    strings.TrimSpace(query.ActorID),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// recordAudit never fails the request; the action already happened.
func (s *Server) recordAudit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(c.Request.Context(), action, targetType, targetID, metadata); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
