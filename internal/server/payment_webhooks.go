package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/hrledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/hrledger/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// HandleYocoWebhook authenticates a gateway notification and runs the
// checkout through the same idempotent path as the redirect. Events that do
// not concern a paid checkout are acknowledged and dropped.
func (s *Server) HandleYocoWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	event, err := s.webhookSvc.Ingest(ctx, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}
	if event.CheckoutID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.Set(obstracing.ContextKeyCheckoutID, event.CheckoutID)

	outcome, err := s.checkoutSvc.Verify(ctx, event.CheckoutID)
	if err != nil {
		logger.FromContext(ctx).Warn("webhook checkout verification failed",
			zap.String("event_id", event.ID),
			zap.String("checkout_id", event.CheckoutID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": outcome.TransactionID})
}
