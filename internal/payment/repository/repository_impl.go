package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/hrledger/internal/payment/domain"
	"gorm.io/gorm"
)

const paymentModeKey = "payment_mode"

type settingRow struct {
	Key   string
	Value string
}

type repo struct{}

func Provide() domain.SettingsRepository {
	return &repo{}
}

// GetPaymentMode returns the stored mode and whether a row exists.
func (r *repo) GetPaymentMode(ctx context.Context, db *gorm.DB) (domain.Mode, bool, error) {
	var row settingRow
	err := db.WithContext(ctx).Raw(
		`SELECT key, value FROM settings WHERE key = ?`,
		paymentModeKey,
	).Scan(&row).Error
	if err != nil {
		return "", false, err
	}
	if row.Key == "" {
		return "", false, nil
	}
	mode, err := domain.ParseMode(row.Value)
	if err != nil {
		return "", false, err
	}
	return mode, true, nil
}

func (r *repo) SetPaymentMode(ctx context.Context, db *gorm.DB, mode domain.Mode, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		paymentModeKey,
		string(mode),
		now,
	).Error
}
