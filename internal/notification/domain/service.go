package domain

import (
	"context"
	"errors"
)

type Dispatcher interface {
	// Notify attempts delivery once. Failures are logged and queued.
	Notify(ctx context.Context, receipt Receipt) Result
	// RetryPending redelivers queued messages and returns how many were sent.
	RetryPending(ctx context.Context, batchSize, maxAttempts int) (int, error)
}

var (
	ErrNoRecipient = errors.New("notification_no_recipient")
	ErrRender      = errors.New("notification_render_failed")
)
