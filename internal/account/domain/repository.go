package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Ensure creates the account with the payg plan when it does not exist.
	Ensure(ctx context.Context, db *gorm.DB, userID, email string, now time.Time) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Account, error)
	IncrementBalance(ctx context.Context, db *gorm.DB, userID string, delta int64, now time.Time) error
	SetPlan(ctx context.Context, db *gorm.DB, userID string, plan Plan, now time.Time) error
}
