package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/hrledger/internal/observability/context"
	obstracing "github.com/smallbiznis/hrledger/internal/observability/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const HeaderRequestID = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)

	// PaymentRoutePrefixes are routes whose client errors are logged at warn,
	// since a rejected verify or webhook usually means money is in limbo.
	PaymentRoutePrefixes []string
}

func DefaultPaymentRoutePrefixes() []string {
	return []string{"/api/checkouts", "/webhooks/"}
}

// GinMiddleware logs one line per request with correlation identifiers.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	if cfg.PaymentRoutePrefixes == nil {
		cfg.PaymentRoutePrefixes = DefaultPaymentRoutePrefixes()
	}
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := c.Request.Context()
		ctx = obscontext.WithRequestID(ctx, requestID)
		ctx = obscontext.WithIPAddress(ctx, c.ClientIP())
		ctx = obscontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := strings.TrimSpace(c.FullPath())
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if checkoutID := strings.TrimSpace(c.GetString(obstracing.ContextKeyCheckoutID)); checkoutID != "" {
			fields = append(fields, zap.String("checkout_id", checkoutID))
		}

		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		// Handlers may have replaced the request context with actor details.
		log := FromContext(c.Request.Context())
		if log == nil {
			return
		}
		if ce := log.Check(cfg.requestLevel(route, status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func (cfg MiddlewareConfig) requestLevel(route string, status int) zapcore.Level {
	switch {
	case isProbe(route):
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest && cfg.isPaymentRoute(route):
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func (cfg MiddlewareConfig) isPaymentRoute(route string) bool {
	for _, prefix := range cfg.PaymentRoutePrefixes {
		if prefix != "" && strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
	if requestID == "" {
		requestID = strings.TrimSpace(c.GetString("request_id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	c.Set("request_id", requestID)
	c.Header(HeaderRequestID, requestID)
	return requestID
}

func isProbe(route string) bool {
	return strings.EqualFold(route, "/metrics") || strings.EqualFold(route, "/health")
}
