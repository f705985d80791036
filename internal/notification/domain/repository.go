package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Enqueue(ctx context.Context, db *gorm.DB, msg *OutboxMessage) error
	// ListDue returns unsent messages whose next attempt is due and which
	// have not exhausted maxAttempts, oldest first.
	ListDue(ctx context.Context, db *gorm.DB, now time.Time, maxAttempts, limit int) ([]*OutboxMessage, error)
	MarkSent(ctx context.Context, db *gorm.DB, id string, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id string, attempts int, lastError string, nextAttemptAt time.Time) error
}
