package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/hrledger/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, userID, email string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (user_id, email, plan, balance, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
		email,
		domain.PlanPayg,
		now,
		now,
	).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, email, plan, balance, created_at, updated_at
		 FROM accounts WHERE user_id = ?`,
		userID,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.UserID == "" {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) IncrementBalance(ctx context.Context, db *gorm.DB, userID string, delta int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE user_id = ?`,
		delta,
		now,
		userID,
	).Error
}

func (r *repo) SetPlan(ctx context.Context, db *gorm.DB, userID string, plan domain.Plan, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts SET plan = ?, updated_at = ? WHERE user_id = ?`,
		plan,
		now,
		userID,
	).Error
}
