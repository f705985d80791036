package yoco

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
)

const (
	webhookTolerance = 5 * time.Minute
	secretPrefix     = "whsec_"
)

// Webhook verifies Yoco webhooks, which are signed using the standard-webhooks
// scheme: HMAC-SHA256 over "<id>.<timestamp>.<body>".
type Webhook struct {
	key []byte
}

func NewWebhook(secret string) (*Webhook, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, paymentdomain.ErrMissingSecretKey
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, paymentdomain.ErrMissingSecretKey
	}
	return &Webhook{key: key}, nil
}

func (w *Webhook) Verify(payload []byte, headers http.Header, now time.Time) error {
	id := strings.TrimSpace(headers.Get("webhook-id"))
	ts := strings.TrimSpace(headers.Get("webhook-timestamp"))
	sigHeader := strings.TrimSpace(headers.Get("webhook-signature"))
	if id == "" || ts == "" || sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	sent := time.Unix(unix, 0)
	if now.Sub(sent) > webhookTolerance || sent.Sub(now) > webhookTolerance {
		return paymentdomain.ErrInvalidSignature
	}

	expected := Sign(w.key, id, ts, payload)
	for _, candidate := range strings.Fields(sigHeader) {
		version, signature, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// Sign computes the base64 signature for a webhook delivery.
func Sign(key []byte, id, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(id + "." + timestamp + "."))
	_, _ = mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type webhookEvent struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	CreatedDate string         `json:"createdDate"`
	Payload     webhookPayment `json:"payload"`
}

type webhookPayment struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

func (w *Webhook) Parse(payload []byte) (*paymentdomain.WebhookEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.Type) != "payment.succeeded" {
		return nil, paymentdomain.ErrEventIgnored
	}

	checkoutID := readString(event.Payload.Metadata, "checkoutId")
	if checkoutID == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	occurredAt, err := time.Parse(time.RFC3339, event.CreatedDate)
	if err != nil {
		occurredAt = time.Time{}
	}

	return &paymentdomain.WebhookEvent{
		ID:         event.ID,
		Type:       event.Type,
		CheckoutID: checkoutID,
		PaymentID:  event.Payload.ID,
		Status:     event.Payload.Status,
		OccurredAt: occurredAt.UTC(),
	}, nil
}
