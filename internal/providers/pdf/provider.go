package pdf

import (
	"context"
	"errors"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Provider renders downloadable documents for ledger transactions.
type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

var ErrInvalidReceipt = errors.New("invalid_receipt")

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}
