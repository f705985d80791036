package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MaxUses       *int         `json:"max_uses"`
	ExpiresAt     *time.Time   `json:"expires_at"`
	ApplicableTo  []string     `json:"applicable_to"`
}

type Service interface {
	// Validate resolves a code for a user. The error is reserved for
	// infrastructure failures; business rejections come back in the result.
	Validate(ctx context.Context, userID, code string) (ValidationResult, error)
	// Redeem consumes one use inside the caller's transaction.
	Redeem(ctx context.Context, tx *gorm.DB, id snowflake.ID) (bool, error)
	Create(ctx context.Context, req CreateRequest) (Coupon, error)
	Deactivate(ctx context.Context, id string) (Coupon, error)
	List(ctx context.Context, activeOnly bool) ([]Coupon, error)
}

var (
	ErrInvalidCode          = errors.New("invalid_code")
	ErrInvalidDiscountType  = errors.New("invalid_discount_type")
	ErrInvalidDiscountValue = errors.New("invalid_discount_value")
	ErrInvalidMaxUses       = errors.New("invalid_max_uses")
	ErrInvalidID            = errors.New("invalid_id")
	ErrCodeTaken            = errors.New("coupon_code_taken")
	ErrNotFound             = errors.New("coupon_not_found")
)

// NormalizeCode uppercases and trims a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
