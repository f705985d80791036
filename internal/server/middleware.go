package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	authdomain "github.com/smallbiznis/hrledger/internal/auth/domain"
	obscontext "github.com/smallbiznis/hrledger/internal/observability/context"
	"github.com/smallbiznis/hrledger/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	HeaderAdminKey = "X-Admin-Key"

	contextUserKey  = "auth_user"
	contextAdminKey = "auth_admin"
)

// UserAuthRequired authenticates end users with the bearer token issued by
// the HR Docs app.
func (s *Server) UserAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, authdomain.ErrMissingToken)
			return
		}

		user, err := s.authsvc.AuthenticateUser(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), user.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// AdminKeyRequired authenticates operators by a configured API key sent in
// X-Admin-Key or as a bearer token.
func (s *Server) AdminKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderAdminKey))
		if raw == "" {
			raw, _ = bearerToken(c)
		}
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		admin, err := s.authsvc.AuthenticateAdmin(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeAdmin), admin.Actor())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextAdminKey, admin)
		c.Next()
	}
}

// VerifyRateLimit throttles checkout verification per user. A limiter
// failure lets the request through.
func (s *Server) VerifyRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}
		user, ok := userFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		result, err := s.limiter.AllowUser(ctx, user.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout verify rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			logger.FromContext(ctx).Warn("checkout verify rate limit exceeded", zap.String("route", c.FullPath()))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(ctx, c.FullPath(), "user-rate")
			}
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func userFromContext(c *gin.Context) (authdomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return authdomain.User{}, false
	}
	user, ok := value.(authdomain.User)
	return user, ok && user.ID != ""
}

func adminFromContext(c *gin.Context) (authdomain.Admin, bool) {
	value, ok := c.Get(contextAdminKey)
	if !ok {
		return authdomain.Admin{}, false
	}
	admin, ok := value.(authdomain.Admin)
	return admin, ok && admin.KeyID != ""
}
