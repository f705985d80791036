package domain

import (
	"context"
	"errors"
	"fmt"
)

// State is a step of checkout processing. Terminal states are rejected,
// already_recorded, notified and notify_failed.
type State string

const (
	StateReceived        State = "received"
	StateVerifying       State = "verifying"
	StateVerified        State = "verified"
	StateRejected        State = "rejected"
	StateNotYetRecorded  State = "not_yet_recorded"
	StateAlreadyRecorded State = "already_recorded"
	StateRecorded        State = "recorded"
	StateNotified        State = "notified"
	StateNotifyFailed    State = "notify_failed"
)

// Outcome is the result of a successful verification. Both notified and
// notify_failed are successes to the caller.
type Outcome struct {
	CheckoutID       string
	State            State
	TransactionID    string
	AlreadyProcessed bool
}

// User is the authenticated caller creating a checkout.
type User struct {
	ID    string
	Email string
}

type CreateRequest struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	PlanID      string `json:"plan_id"`
	CouponCode  string `json:"coupon_code"`
	Description string `json:"description"`
}

type CreateResult struct {
	CheckoutID  string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type Service interface {
	// Verify confirms a checkout with the gateway and records it once.
	Verify(ctx context.Context, checkoutID string) (Outcome, error)
	Create(ctx context.Context, user User, req CreateRequest) (CreateResult, error)
}

var (
	ErrInvalidCheckoutID  = errors.New("invalid_checkout_id")
	ErrInvalidType        = errors.New("invalid_checkout_type")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrUnknownPlan        = errors.New("unknown_plan")
	ErrCheckoutInProgress = errors.New("checkout_in_progress")
	ErrRejectedPayment    = errors.New("rejected_payment")
	ErrValidation         = errors.New("checkout_metadata_invalid")
	ErrCouponRejected     = errors.New("coupon_rejected")
)

// RejectedPaymentError is returned when the gateway reports a status other
// than successful. It is final and is not retried.
type RejectedPaymentError struct {
	Status string
}

func (e *RejectedPaymentError) Error() string {
	return fmt.Sprintf("Payment status is %s", e.Status)
}

func (e *RejectedPaymentError) Unwrap() error { return ErrRejectedPayment }

// ValidationError reports a paid checkout whose metadata cannot be recorded.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Checkout metadata is missing %s", e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CouponRejectedError carries the user-facing coupon message at checkout creation.
type CouponRejectedError struct {
	Message string
}

func (e *CouponRejectedError) Error() string { return e.Message }

func (e *CouponRejectedError) Unwrap() error { return ErrCouponRejected }
