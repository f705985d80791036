package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/hrledger/internal/checkout/domain"
	obstracing "github.com/smallbiznis/hrledger/internal/observability/tracing"
)

type verifyCheckoutRequest struct {
	CheckoutID string `json:"checkoutId"`
}

type verifyCheckoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id"`
}

// VerifyCheckout confirms a paid checkout after the gateway redirect and
// records it once.
func (s *Server) VerifyCheckout(c *gin.Context) {
	var req verifyCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	checkoutID := strings.TrimSpace(req.CheckoutID)
	if checkoutID == "" {
		AbortWithError(c, newValidationError("checkoutId", "checkoutId is required"))
		return
	}
	c.Set(obstracing.ContextKeyCheckoutID, checkoutID)

	outcome, err := s.checkoutSvc.Verify(c.Request.Context(), checkoutID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse(outcome))
}

func verifyResponse(outcome checkoutdomain.Outcome) verifyCheckoutResponse {
	resp := verifyCheckoutResponse{Success: true, ID: outcome.TransactionID}
	if outcome.AlreadyProcessed {
		resp.Message = "Already processed"
	}
	return resp
}

// CreateCheckout opens a gateway checkout for the caller.
func (s *Server) CreateCheckout(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.checkoutSvc.Create(c.Request.Context(), checkoutdomain.User{ID: user.ID, Email: user.Email}, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
