package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TransactionTypeTopup        TransactionType = "topup"
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypeAdjustment   TransactionType = "adjustment"
)

// Transaction is an immutable credit movement. Amount is signed cents:
// positive for credits granted, negative for subscription debits.
type Transaction struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID         string            `gorm:"type:text;not null;index" json:"user_id"`
	UserEmail      string            `gorm:"type:text;not null" json:"user_email"`
	Type           TransactionType   `gorm:"type:text;not null" json:"type"`
	Description    string            `gorm:"type:text;not null" json:"description"`
	Amount         int64             `gorm:"not null" json:"amount"`
	ExternalID     *string           `gorm:"type:text;uniqueIndex" json:"external_id,omitempty"`
	CouponCode     *string           `gorm:"type:text" json:"coupon_code,omitempty"`
	DiscountAmount *int64            `json:"discount_amount,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// Entry is a verified payment to be recorded. Amount is the positive number
// of cents the gateway collected.
type Entry struct {
	ExternalID  string
	UserID      string
	UserEmail   string
	Type        TransactionType
	Amount      int64
	CouponCode  string
	Description string
	Metadata    map[string]any
}

// AdjustRequest is an operator credit correction. Amount may be negative.
type AdjustRequest struct {
	UserID  string `json:"-"`
	Amount  int64  `json:"amount"`
	Reason  string `json:"reason"`
	ActorID string `json:"-"`
}

type ListRequest struct {
	UserID    string
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Transactions  []Transaction `json:"transactions"`
	NextPageToken string        `json:"next_page_token,omitempty"`
	HasMore       bool          `json:"has_more"`
}

type ListCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	UserID string
	Cursor *ListCursor
	Limit  int
}

// Reconciliation compares an account balance with the sum of its ledger.
type Reconciliation struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	LedgerSum int64  `json:"ledger_sum"`
}

func (r Reconciliation) Drift() int64 { return r.Balance - r.LedgerSum }

func (r Reconciliation) Consistent() bool { return r.Drift() == 0 }
