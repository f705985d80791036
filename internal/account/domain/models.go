package domain

import "time"

type Plan string

const (
	PlanPayg       Plan = "payg"
	PlanPro        Plan = "pro"
	PlanConsultant Plan = "consultant"
	PlanAgency     Plan = "agency"
)

// Account holds the prepaid credit balance for a user. Balance is only ever
// changed by the ledger in the same transaction that records the movement.
type Account struct {
	UserID    string    `gorm:"primaryKey;type:text" json:"user_id"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	Plan      Plan      `gorm:"type:text;not null" json:"plan"`
	Balance   int64     `gorm:"not null" json:"balance"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }
