package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
)

type paymentModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) GetPaymentMode(c *gin.Context) {
	mode, err := s.paymentSvc.Mode(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"mode": mode}})
}

// UpdatePaymentMode switches between live and test gateway credentials.
// Checkouts verified after the switch use the new mode.
func (s *Server) UpdatePaymentMode(c *gin.Context) {
	var req paymentModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	mode, err := paymentdomain.ParseMode(req.Mode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	admin, ok := adminFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.paymentSvc.SetMode(c.Request.Context(), mode, admin.Actor()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"mode": mode}})
}
