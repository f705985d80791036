package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	"github.com/smallbiznis/hrledger/internal/providers/pdf"
	"github.com/smallbiznis/hrledger/pkg/money"
)

// DownloadReceipt renders a PDF receipt for one of the caller's
// transactions. Transactions owned by other users are reported as missing.
func (s *Server) DownloadReceipt(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	txn, err := s.ledgerSvc.Get(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if txn.UserID != user.ID {
		AbortWithError(c, ErrNotFound)
		return
	}

	data := s.receiptData(txn)
	doc, err := s.receipts.GenerateReceipt(ctx, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := pdf.ReceiptFilename(s.cfg.Email.ProductName, data.TransactionID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) receiptData(txn *ledgerdomain.Transaction) pdf.ReceiptData {
	currency := s.cfg.Payment.Currency
	if raw, ok := txn.Metadata["currency"].(string); ok && strings.TrimSpace(raw) != "" {
		currency = raw
	}

	var discount int64
	if txn.DiscountAmount != nil {
		discount = *txn.DiscountAmount
	}
	paid := txn.Amount - discount
	if txn.Type == ledgerdomain.TransactionTypeSubscription {
		paid = -txn.Amount
	}

	data := pdf.ReceiptData{
		ProductName:   s.cfg.Email.ProductName,
		SupportEmail:  s.cfg.Email.SupportEmail,
		TransactionID: txn.ID.String(),
		DatePaid:      txn.CreatedAt.UTC().Format(time.RFC1123),
		BillToEmail:   txn.UserEmail,
		Description:   txn.Description,
		Type:          money.Label(string(txn.Type)),
		AmountPaid:    money.Format(paid, currency),
		Credited:      money.Format(txn.Amount, currency),
	}
	if txn.ExternalID != nil {
		data.Reference = *txn.ExternalID
	}
	if discount != 0 {
		data.Discount = money.Format(discount, currency)
	}
	if txn.CouponCode != nil {
		data.CouponCode = *txn.CouponCode
	}
	return data
}
