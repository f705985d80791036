package domain

import (
	"context"
	"errors"
	"fmt"
)

type Service interface {
	Record(ctx context.Context, entry Entry) (*Transaction, error)
	FindByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	Get(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	AdjustCredit(ctx context.Context, req AdjustRequest) (*Transaction, error)
	Reconcile(ctx context.Context, userID string) (Reconciliation, error)
	FindDrift(ctx context.Context, limit int) ([]Reconciliation, error)
}

var (
	ErrAlreadyRecorded   = errors.New("already_recorded")
	ErrCouponSystem      = errors.New("coupon_system_error")
	ErrDatabase          = errors.New("database_error")
	ErrInvalidUserID     = errors.New("invalid_user_id")
	ErrInvalidType       = errors.New("invalid_transaction_type")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidExternalID = errors.New("invalid_external_id")
	ErrInvalidReason     = errors.New("invalid_reason")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrNotFound          = errors.New("transaction_not_found")
)

// AlreadyRecordedError is returned when the external id was written by an
// earlier delivery. TransactionID points at that row.
type AlreadyRecordedError struct {
	ExternalID    string
	TransactionID string
}

func (e *AlreadyRecordedError) Error() string {
	return fmt.Sprintf("external id %s already recorded as transaction %s", e.ExternalID, e.TransactionID)
}

func (e *AlreadyRecordedError) Unwrap() error { return ErrAlreadyRecorded }
