package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	"github.com/smallbiznis/hrledger/pkg/money"
)

// GetAccount returns the caller's balance and plan. A user who never paid
// has an implicit empty pay-as-you-go account.
func (s *Server) GetAccount(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	account, err := s.accountSvc.Get(c.Request.Context(), user.ID)
	if err != nil {
		if !errors.Is(err, accountdomain.ErrNotFound) {
			AbortWithError(c, err)
			return
		}
		account = accountdomain.Account{UserID: user.ID, Email: user.Email, Plan: accountdomain.PlanPayg}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"user_id":         account.UserID,
			"plan":            account.Plan,
			"balance":         account.Balance,
			"balance_display": money.Format(account.Balance, s.cfg.Payment.Currency),
		},
	})
}
