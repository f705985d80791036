package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptData is pre-formatted; amounts are display strings.
type ReceiptData struct {
	ProductName   string
	SupportEmail  string
	TransactionID string
	Reference     string
	DatePaid      string
	BillToEmail   string
	Description   string
	Type          string
	AmountPaid    string
	Discount      string
	CouponCode    string
	Credited      string
}

// ReceiptFilename builds a stable download name such as
// "hr-docs-receipt-1790000000000.pdf".
func ReceiptFilename(productName, transactionID string) string {
	base := slug.Make(strings.TrimSpace(productName) + " receipt " + strings.TrimSpace(transactionID))
	if base == "" {
		base = "receipt"
	}
	return base + ".pdf"
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if strings.TrimSpace(receipt.TransactionID) == "" {
		return nil, ErrInvalidReceipt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(30,
		text.NewCol(8, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, receipt.ProductName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Receipt number: "+receipt.TransactionID, props.Text{Top: 0}),
			text.New("Date paid: "+receipt.DatePaid, props.Text{Top: 5}),
			text.New("Payment reference: "+receipt.Reference, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(receipt.BillToEmail, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.AmountPaid+" paid on "+receipt.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(8, fmt.Sprintf("%s (%s)", receipt.Description, receipt.Type), props.Text{Size: 9}),
		text.NewCol(4, receipt.AmountPaid, props.Text{Size: 9, Align: align.Right}),
	)

	if receipt.CouponCode != "" {
		m.AddRow(10,
			col.New(6),
			text.NewCol(3, "Coupon "+receipt.CouponCode, props.Text{Size: 9}),
			text.NewCol(3, "+"+receipt.Discount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Credited", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(3, receipt.Credited, props.Text{Size: 9, Align: align.Right, Style: fontstyle.Bold}),
	)

	if receipt.SupportEmail != "" {
		m.AddRow(20,
			text.NewCol(12, "Questions? Contact "+receipt.SupportEmail, props.Text{Size: 8, Top: 10}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
