package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("mode", "live"),
		attribute.String("user_id", "user-123"),
		attribute.String("checkout_id", "ch_1"),
		attribute.String("outcome", "recorded"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" || attr.Key == "checkout_id" {
			t.Fatalf("expected %s to be dropped", attr.Key)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordCheckoutVerification(context.Background(), "test", "recorded")
	m.RecordLedgerWrite(context.Background(), "topup", 100)
	m.RecordNotification(context.Background(), "smtp", "sent")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "hrledger"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordLedgerWrite(context.Background(), "subscription", -74700)
	m.RecordCouponValidation(context.Background(), "valid")
}
