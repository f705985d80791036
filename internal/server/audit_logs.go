package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	"github.com/smallbiznis/hrledger/internal/observability/logger"
	"go.uber.org/zap"
)

type listAuditLogsQuery struct {
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorType  string `form:"actor_type"`
	ActorID    string `form:"actor_id"`
	Since      string `form:"since"`
	Until      string `form:"until"`
	Limit      string `form:"limit"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit := 0
	if raw := strings.TrimSpace(query.Limit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	since, err := parseTimeParam("since", query.Since)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	until, err := parseTimeParam("until", query.Until)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logs, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorType:  strings.TrimSpace(query.ActorType),
		ActorID:    strings.TrimSpace(query.ActorID),
		Since:      since,
		Until:      until,
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// parseTimeParam accepts RFC 3339 timestamps. Empty means unset.
func parseTimeParam(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, newValidationError(field, "invalid "+field)
	}
	return &parsed, nil
}

// auditAdmin records an operator action. Audit failures are logged and do
// not fail the request that already succeeded.
func (s *Server) auditAdmin(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	admin, ok := adminFromContext(c)
	if !ok {
		return
	}
	actorID := admin.Actor()
	ctx := c.Request.Context()
	if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actorID, action, targetType, &targetID, metadata); err != nil {
		logger.FromContext(ctx).Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
