package webhook

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/payment/adapters/yoco"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"go.uber.org/zap"
)

func TestIngestWithoutSecretIsDisabled(t *testing.T) {
	svc := NewService(Params{Log: zap.NewNop(), Cfg: config.Config{}})
	_, err := svc.Ingest(context.Background(), []byte(`{}`), http.Header{})
	if !errors.Is(err, paymentdomain.ErrWebhookDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestIngestVerifiesAndParses(t *testing.T) {
	key := []byte("webhook-key")
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	svc := NewService(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
		Cfg: config.Config{Payment: config.PaymentConfig{
			YocoWebhookSecret: "whsec_" + base64.StdEncoding.EncodeToString(key),
		}},
	})

	payload := []byte(`{"id":"evt_9","type":"payment.succeeded","payload":{"id":"p_9","metadata":{"checkoutId":"ch_9"}}}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	headers := http.Header{}
	headers.Set("webhook-id", "msg_9")
	headers.Set("webhook-timestamp", ts)
	headers.Set("webhook-signature", "v1,"+yoco.Sign(key, "msg_9", ts, payload))

	event, err := svc.Ingest(context.Background(), payload, headers)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if event.CheckoutID != "ch_9" {
		t.Fatalf("expected checkout ch_9, got %s", event.CheckoutID)
	}

	headers.Set("webhook-signature", "v1,forged")
	if _, err := svc.Ingest(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

type fixedMode struct {
	paymentdomain.Service
	mode paymentdomain.Mode
}

func (f fixedMode) Mode(context.Context) (paymentdomain.Mode, error) { return f.mode, nil }

func signedHeaders(key []byte, id string, now time.Time, payload []byte) http.Header {
	ts := strconv.FormatInt(now.Unix(), 10)
	headers := http.Header{}
	headers.Set("webhook-id", id)
	headers.Set("webhook-timestamp", ts)
	headers.Set("webhook-signature", "v1,"+yoco.Sign(key, id, ts, payload))
	return headers
}

func TestIngestUsesSecretOfActiveMode(t *testing.T) {
	liveKey := []byte("live-webhook-key")
	testKey := []byte("test-webhook-key")
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	cfg := config.Config{Payment: config.PaymentConfig{
		DefaultMode:           "test",
		YocoLiveWebhookSecret: "whsec_" + base64.StdEncoding.EncodeToString(liveKey),
		YocoTestWebhookSecret: "whsec_" + base64.StdEncoding.EncodeToString(testKey),
	}}
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","payload":{"id":"p_1","metadata":{"checkoutId":"ch_1"}}}`)

	live := NewService(Params{
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(now),
		Cfg:      cfg,
		Payments: fixedMode{mode: paymentdomain.ModeLive},
	})
	if _, err := live.Ingest(context.Background(), payload, signedHeaders(liveKey, "msg_1", now, payload)); err != nil {
		t.Fatalf("live ingest: %v", err)
	}
	if _, err := live.Ingest(context.Background(), payload, signedHeaders(testKey, "msg_2", now, payload)); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected test-signed webhook to fail in live mode, got %v", err)
	}

	test := NewService(Params{
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(now),
		Cfg:      cfg,
		Payments: fixedMode{mode: paymentdomain.ModeTest},
	})
	if _, err := test.Ingest(context.Background(), payload, signedHeaders(testKey, "msg_3", now, payload)); err != nil {
		t.Fatalf("test ingest: %v", err)
	}
}

func TestIngestDisabledForModeWithoutSecret(t *testing.T) {
	key := []byte("test-only")
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	svc := NewService(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
		Cfg: config.Config{Payment: config.PaymentConfig{
			YocoTestWebhookSecret: "whsec_" + base64.StdEncoding.EncodeToString(key),
		}},
		Payments: fixedMode{mode: paymentdomain.ModeLive},
	})
	payload := []byte(`{}`)
	if _, err := svc.Ingest(context.Background(), payload, signedHeaders(key, "msg_4", now, payload)); !errors.Is(err, paymentdomain.ErrWebhookDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}
