package domain

import (
	"context"
	"errors"
)

type Service interface {
	Get(ctx context.Context, userID string) (Account, error)
}

var (
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrNotFound      = errors.New("account_not_found")
)
