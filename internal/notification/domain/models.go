package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Receipt is what the user is told after a ledger write. Amounts are cents.
type Receipt struct {
	TransactionID snowflake.ID
	UserID        string
	Recipient     string
	Type          string
	Description   string
	Reference     string
	Currency      string
	AmountPaid    int64
	Credited      int64
	Discount      int64
	CouponCode    string
	Balance       *int64
	CreatedAt     time.Time
}

// Result reports what happened to a notification. It is informational only;
// callers never fail a request because of it.
type Result struct {
	Sent    bool
	Queued  bool
	Skipped bool
	Err     error
}

// OutboxMessage is a rendered email waiting for another delivery attempt.
type OutboxMessage struct {
	ID            string       `gorm:"primaryKey;type:text"`
	TransactionID snowflake.ID `gorm:"not null"`
	Recipient     string       `gorm:"type:text;not null"`
	Subject       string       `gorm:"type:text;not null"`
	HTMLBody      string       `gorm:"column:html_body;type:text;not null"`
	Attempts      int          `gorm:"not null"`
	LastError     *string      `gorm:"type:text"`
	NextAttemptAt time.Time    `gorm:"not null"`
	SentAt        *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (OutboxMessage) TableName() string { return "notification_outbox" }
