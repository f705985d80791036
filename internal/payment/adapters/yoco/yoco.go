package yoco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
)

const (
	DefaultBaseURL = "https://payments.yoco.com"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "yoco"
}

func (f *Factory) NewVerifier(cfg paymentdomain.AdapterConfig) (paymentdomain.Verifier, error) {
	return NewClient(cfg)
}

// Client is a Yoco checkout API client bound to one mode and secret key.
type Client struct {
	mode      paymentdomain.Mode
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(cfg paymentdomain.AdapterConfig) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, &paymentdomain.ConfigError{Mode: cfg.Mode}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		mode:      cfg.Mode,
		secretKey: secret,
		baseURL:   baseURL,
		http:      client,
	}, nil
}

func (c *Client) Mode() paymentdomain.Mode {
	return c.mode
}

func (c *Client) GetCheckout(ctx context.Context, checkoutID string) (*paymentdomain.Checkout, error) {
	checkoutID = strings.TrimSpace(checkoutID)
	if checkoutID == "" {
		return nil, paymentdomain.ErrInvalidCheckout
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/checkouts/"+url.PathEscape(checkoutID), nil)
	if err != nil {
		return nil, err
	}

	var checkout checkoutResponse
	if err := c.do(req, &checkout); err != nil {
		return nil, err
	}
	return checkout.toDomain(), nil
}

func (c *Client) CreateCheckout(ctx context.Context, in paymentdomain.CreateCheckoutRequest) (*paymentdomain.Checkout, error) {
	body := createCheckoutBody{
		Amount:      in.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		SuccessURL:  in.SuccessURL,
		CancelURL:   in.CancelURL,
		FailureURL:  in.FailureURL,
		Metadata:    in.Metadata,
		ExternalRef: in.ExternalRef,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/checkouts", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var checkout checkoutResponse
	if err := c.do(req, &checkout); err != nil {
		return nil, err
	}
	return checkout.toDomain(), nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yoco request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &paymentdomain.GatewayError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, raw),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode yoco response: %w", paymentdomain.ErrInvalidPayload)
	}
	return nil
}

type createCheckoutBody struct {
	Amount      int64                          `json:"amount"`
	Currency    string                         `json:"currency"`
	SuccessURL  string                         `json:"successUrl,omitempty"`
	CancelURL   string                         `json:"cancelUrl,omitempty"`
	FailureURL  string                         `json:"failureUrl,omitempty"`
	Metadata    paymentdomain.CheckoutMetadata `json:"metadata"`
	ExternalRef string                         `json:"externalId,omitempty"`
}

type checkoutResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	RedirectURL string         `json:"redirectUrl"`
	PaymentID   string         `json:"paymentId"`
	Metadata    map[string]any `json:"metadata"`
}

func (r checkoutResponse) toDomain() *paymentdomain.Checkout {
	return &paymentdomain.Checkout{
		ID:          r.ID,
		Status:      strings.TrimSpace(r.Status),
		Amount:      r.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		RedirectURL: r.RedirectURL,
		PaymentID:   r.PaymentID,
		Metadata: paymentdomain.CheckoutMetadata{
			UserID:      readString(r.Metadata, "userId"),
			Type:        readString(r.Metadata, "type"),
			CouponCode:  readString(r.Metadata, "couponCode"),
			Description: readString(r.Metadata, "description"),
			UserEmail:   readString(r.Metadata, "userEmail"),
		},
	}
}

type errorResponse struct {
	ErrorCode      string `json:"errorCode"`
	ErrorType      string `json:"errorType"`
	ErrorMessage   string `json:"errorMessage"`
	DisplayMessage string `json:"displayMessage"`
	Message        string `json:"message"`
}

func errorMessage(status int, raw []byte) string {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, msg := range []string{body.DisplayMessage, body.ErrorMessage, body.Message} {
			if msg = strings.TrimSpace(msg); msg != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("payment gateway returned status %d", status)
}

func readString(values map[string]any, key string) string {
	if values == nil {
		return ""
	}
	raw, ok := values[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
