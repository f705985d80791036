package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	"github.com/smallbiznis/hrledger/pkg/db/pagination"
)

type listTransactionsQuery struct {
	pagination.Pagination
	UserID string `form:"user_id"`
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query listTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListRequest{
		UserID:    strings.TrimSpace(query.UserID),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp.Transactions,
		"page_info": pagination.PageInfo{
			NextPageToken: resp.NextPageToken,
			HasMore:       resp.HasMore,
		},
	})
}

type adjustCreditsRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// AdjustCredits applies an operator correction through the ledger so the
// balance and its history stay in step.
func (s *Server) AdjustCredits(c *gin.Context) {
	admin, ok := adminFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req adjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txn, err := s.ledgerSvc.AdjustCredit(c.Request.Context(), ledgerdomain.AdjustRequest{
		UserID:  strings.TrimSpace(c.Param("userId")),
		Amount:  req.Amount,
		Reason:  strings.TrimSpace(req.Reason),
		ActorID: admin.Actor(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": txn})
}

func (s *Server) ReconcileAccount(c *gin.Context) {
	rec, err := s.ledgerSvc.Reconcile(c.Request.Context(), strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"user_id":    rec.UserID,
			"balance":    rec.Balance,
			"ledger_sum": rec.LedgerSum,
			"drift":      rec.Drift(),
			"consistent": rec.Consistent(),
		},
	})
}
