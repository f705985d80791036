package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, coupon *Coupon) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Coupon, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Coupon, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*Coupon, error)
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	// Redeem increments uses when the coupon is still active and below its cap.
	// It reports false when the conditional update matched no row.
	Redeem(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}
