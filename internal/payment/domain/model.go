package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Mode selects which gateway credentials are used.
type Mode string

const (
	ModeLive Mode = "live"
	ModeTest Mode = "test"
)

// ParseMode normalizes a mode string. Unknown values are rejected.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLive:
		return ModeLive, nil
	case ModeTest:
		return ModeTest, nil
	default:
		return "", ErrInvalidMode
	}
}

const (
	StatusSuccessful = "successful"

	CheckoutTypeTopup        = "topup"
	CheckoutTypeSubscription = "subscription"
)

// CheckoutMetadata is written when the checkout is created and read back on
// verification. UserID and Type are required for a ledger write.
type CheckoutMetadata struct {
	UserID      string `json:"userId,omitempty"`
	Type        string `json:"type,omitempty"`
	CouponCode  string `json:"couponCode,omitempty"`
	Description string `json:"description,omitempty"`
	UserEmail   string `json:"userEmail,omitempty"`
}

// Checkout is the gateway-owned payment session. It is never mutated here.
type Checkout struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Amount      int64            `json:"amount"`
	Currency    string           `json:"currency"`
	RedirectURL string           `json:"redirectUrl,omitempty"`
	PaymentID   string           `json:"paymentId,omitempty"`
	Metadata    CheckoutMetadata `json:"metadata"`
}

type CreateCheckoutRequest struct {
	Amount      int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	FailureURL  string
	Metadata    CheckoutMetadata
	ExternalRef string
}

// WebhookEvent is a parsed, signature-verified gateway notification.
type WebhookEvent struct {
	ID         string
	Type       string
	CheckoutID string
	PaymentID  string
	Status     string
	OccurredAt time.Time
}

// Verifier talks to the payment gateway for a single mode.
type Verifier interface {
	Mode() Mode
	GetCheckout(ctx context.Context, checkoutID string) (*Checkout, error)
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*Checkout, error)
}

// AdapterConfig carries everything needed to build a Verifier.
type AdapterConfig struct {
	Mode      Mode
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
	Client    *http.Client
}

type AdapterFactory interface {
	Provider() string
	NewVerifier(cfg AdapterConfig) (Verifier, error)
}

// WebhookVerifier checks and parses inbound gateway webhooks.
type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header, now time.Time) error
	Parse(payload []byte) (*WebhookEvent, error)
}

type SettingsRepository interface {
	GetPaymentMode(ctx context.Context, db *gorm.DB) (Mode, bool, error)
	SetPaymentMode(ctx context.Context, db *gorm.DB, mode Mode, now time.Time) error
}

// Service resolves the active payment mode and the matching verifier.
type Service interface {
	Verifier(ctx context.Context) (Verifier, error)
	Mode(ctx context.Context) (Mode, error)
	// SetMode switches the active mode. actorID is recorded on the audit entry.
	SetMode(ctx context.Context, mode Mode, actorID string) error
}

var (
	ErrMissingSecretKey = errors.New("missing_secret_key")
	ErrGateway          = errors.New("gateway_error")
	ErrInvalidMode      = errors.New("invalid_payment_mode")
	ErrProviderNotFound = errors.New("payment_provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrInvalidCheckout  = errors.New("invalid_checkout_id")
	ErrWebhookDisabled  = errors.New("webhook_not_configured")
)

// ConfigError reports that the active mode has no usable secret key.
type ConfigError struct {
	Mode Mode
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("payment gateway is not configured for %s mode", e.Mode)
}

func (e *ConfigError) Unwrap() error { return ErrMissingSecretKey }

// GatewayError is a non-2xx response from the payment gateway.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fmt.Sprintf("payment gateway returned status %d", e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return ErrGateway }
