package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

// Messages returned to the user by Validate. First failing rule wins.
const (
	MessageNotFound      = "Coupon not found."
	MessageInactive      = "This coupon is no longer active."
	MessageExpired       = "This coupon has expired."
	MessageUsageLimit    = "This coupon has reached its usage limit."
	MessageNotApplicable = "This coupon is not valid for your account."
	MessageApplied       = "Coupon applied."
)

// Coupon is a promotional code that increases the credit granted on a top-up.
// DiscountValue is cents for fixed coupons and a whole percent (1..99) for
// percentage coupons.
type Coupon struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	Code          string         `gorm:"type:text;not null;uniqueIndex" json:"code"`
	DiscountType  DiscountType   `gorm:"type:text;not null" json:"discount_type"`
	DiscountValue int64          `gorm:"not null" json:"discount_value"`
	MaxUses       *int           `json:"max_uses,omitempty"`
	Uses          int            `gorm:"not null;default:0" json:"uses"`
	Active        bool           `gorm:"not null;default:true" json:"active"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	ApplicableTo  pq.StringArray `gorm:"type:text[]" json:"applicable_to"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

// Expired reports whether the coupon expiry is strictly before now.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Exhausted reports whether the usage cap has been reached.
func (c Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.Uses >= *c.MaxUses
}

// Scope returns ApplicableTo with nil normalized to an empty array so the
// column never receives NULL.
func (c Coupon) Scope() pq.StringArray {
	if c.ApplicableTo == nil {
		return pq.StringArray{}
	}
	return c.ApplicableTo
}

// AppliesTo matches the coupon scope against a user. Entries are a bare user
// id, "user:<id>", "plan:<plan>" or "*". An empty scope matches everyone.
func (c Coupon) AppliesTo(userID, plan string) bool {
	if len(c.ApplicableTo) == 0 {
		return true
	}
	for _, entry := range c.ApplicableTo {
		switch entry {
		case "*", userID, "user:" + userID:
			return true
		}
		if plan != "" && entry == "plan:"+plan {
			return true
		}
	}
	return false
}

// CreditFor returns the credit to grant for a payment of amount cents and the
// discount portion of that credit. Percentage coupons gross the payment up so
// that the user pays (100-pct)% of the credited value.
func CreditFor(amount int64, c Coupon) (credit int64, discount int64) {
	switch c.DiscountType {
	case DiscountTypeFixed:
		credit = amount + c.DiscountValue
	case DiscountTypePercentage:
		pct := float64(c.DiscountValue)
		if pct <= 0 || pct >= 100 {
			return amount, 0
		}
		credit = int64(math.Round(float64(amount) / (1 - pct/100)))
	default:
		return amount, 0
	}
	return credit, credit - amount
}

// ValidationResult is the outcome of checking a code for a user.
type ValidationResult struct {
	Valid   bool    `json:"valid"`
	Message string  `json:"message"`
	Coupon  *Coupon `json:"coupon,omitempty"`
}
