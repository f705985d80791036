package yoco

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
)

func TestGetCheckoutSendsBearerAndParsesMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/checkouts/ch_123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "ch_123",
			"status":   "successful",
			"amount":   10000,
			"currency": "zar",
			"metadata": map[string]any{
				"userId":     "user_1",
				"type":       "topup",
				"couponCode": "WELCOME",
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(paymentdomain.AdapterConfig{
		Mode:      paymentdomain.ModeTest,
		SecretKey: "sk_test_abc",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	checkout, err := client.GetCheckout(context.Background(), "ch_123")
	if err != nil {
		t.Fatalf("get checkout: %v", err)
	}
	if checkout.Status != paymentdomain.StatusSuccessful {
		t.Fatalf("expected successful, got %s", checkout.Status)
	}
	if checkout.Amount != 10000 || checkout.Currency != "ZAR" {
		t.Fatalf("unexpected amount/currency %d %s", checkout.Amount, checkout.Currency)
	}
	if checkout.Metadata.UserID != "user_1" || checkout.Metadata.Type != "topup" || checkout.Metadata.CouponCode != "WELCOME" {
		t.Fatalf("unexpected metadata %+v", checkout.Metadata)
	}
}

func TestGetCheckoutNon2xxIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorCode":"not_found","displayMessage":"Checkout not found"}`))
	}))
	defer server.Close()

	client, err := NewClient(paymentdomain.AdapterConfig{Mode: paymentdomain.ModeLive, SecretKey: "sk_live", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetCheckout(context.Background(), "missing")
	var gwErr *paymentdomain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if gwErr.StatusCode != http.StatusNotFound || gwErr.Message != "Checkout not found" {
		t.Fatalf("unexpected gateway error %+v", gwErr)
	}
	if !errors.Is(err, paymentdomain.ErrGateway) {
		t.Fatalf("expected gateway sentinel")
	}
}

func TestNewClientWithoutSecretIsConfigError(t *testing.T) {
	_, err := NewClient(paymentdomain.AdapterConfig{Mode: paymentdomain.ModeLive})
	var cfgErr *paymentdomain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
	if cfgErr.Mode != paymentdomain.ModeLive {
		t.Fatalf("expected live mode, got %s", cfgErr.Mode)
	}
}

func TestCreateCheckoutPostsMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/checkouts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Errorf("expected idempotency key")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		meta, _ := body["metadata"].(map[string]any)
		if meta["userId"] != "user_9" || meta["type"] != "subscription" {
			t.Errorf("unexpected metadata %+v", meta)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "ch_new",
			"status":      "created",
			"amount":      body["amount"],
			"currency":    "ZAR",
			"redirectUrl": "https://c.yoco.com/checkout/ch_new",
		})
	}))
	defer server.Close()

	client, _ := NewClient(paymentdomain.AdapterConfig{Mode: paymentdomain.ModeTest, SecretKey: "sk", BaseURL: server.URL})
	checkout, err := client.CreateCheckout(context.Background(), paymentdomain.CreateCheckoutRequest{
		Amount:   74700,
		Currency: "zar",
		Metadata: paymentdomain.CheckoutMetadata{UserID: "user_9", Type: paymentdomain.CheckoutTypeSubscription},
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if checkout.ID != "ch_new" || checkout.RedirectURL == "" || checkout.Amount != 74700 {
		t.Fatalf("unexpected checkout %+v", checkout)
	}
}

func TestWebhookVerifyAndParse(t *testing.T) {
	key := []byte("super-secret-key")
	secret := secretPrefix + base64.StdEncoding.EncodeToString(key)
	hook, err := NewWebhook(secret)
	if err != nil {
		t.Fatalf("new webhook: %v", err)
	}

	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","createdDate":"2026-06-01T10:00:00Z","payload":{"id":"p_1","status":"succeeded","metadata":{"checkoutId":"ch_777"}}}`)
	now := time.Date(2026, 6, 1, 10, 0, 30, 0, time.UTC)
	ts := strconv.FormatInt(now.Add(-30*time.Second).Unix(), 10)

	headers := http.Header{}
	headers.Set("webhook-id", "msg_1")
	headers.Set("webhook-timestamp", ts)
	headers.Set("webhook-signature", "v1,bogus v1,"+Sign(key, "msg_1", ts, payload))

	if err := hook.Verify(payload, headers, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	event, err := hook.Parse(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.CheckoutID != "ch_777" || event.PaymentID != "p_1" {
		t.Fatalf("unexpected event %+v", event)
	}

	if err := hook.Verify(payload, headers, now.Add(10*time.Minute)); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected stale timestamp to fail, got %v", err)
	}

	headers.Set("webhook-signature", "v1,"+Sign([]byte("other"), "msg_1", ts, payload))
	if err := hook.Verify(payload, headers, now); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected wrong key to fail, got %v", err)
	}
}

func TestWebhookParseIgnoresOtherEvents(t *testing.T) {
	hook, _ := NewWebhook(secretPrefix + base64.StdEncoding.EncodeToString([]byte("k")))
	_, err := hook.Parse([]byte(`{"id":"evt_2","type":"refund.succeeded","payload":{}}`))
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ignored event, got %v", err)
	}
}
