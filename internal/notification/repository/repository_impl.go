package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/hrledger/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Enqueue(ctx context.Context, db *gorm.DB, msg *domain.OutboxMessage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_outbox (
			id, transaction_id, recipient, subject, html_body,
			attempts, last_error, next_attempt_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.TransactionID,
		msg.Recipient,
		msg.Subject,
		msg.HTMLBody,
		msg.Attempts,
		msg.LastError,
		msg.NextAttemptAt,
		msg.CreatedAt,
	).Error
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now time.Time, maxAttempts, limit int) ([]*domain.OutboxMessage, error) {
	var items []*domain.OutboxMessage
	err := db.WithContext(ctx).Raw(
		`SELECT id, transaction_id, recipient, subject, html_body,
			attempts, last_error, next_attempt_at, sent_at, created_at
		FROM notification_outbox
		WHERE sent_at IS NULL AND next_attempt_at <= ? AND attempts < ?
		ORDER BY next_attempt_at ASC, id ASC
		LIMIT ?`,
		now,
		maxAttempts,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox SET sent_at = ?, last_error = NULL WHERE id = ?`,
		now,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id string, attempts int, lastError string, nextAttemptAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox
		SET attempts = ?, last_error = ?, next_attempt_at = ?
		WHERE id = ?`,
		attempts,
		lastError,
		nextAttemptAt,
		id,
	).Error
}
