package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/hrledger/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", maskEmail("jane@example.com"))
	assert.Equal(t, "***", maskEmail("not-an-email"))
	assert.Equal(t, "***", maskEmail("@example.com"))
	assert.Equal(t, "", maskEmail("  "))
}

func TestWithContextAddsActor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := obscontext.WithActor(obscontext.WithRequestID(context.Background(), "req-1"), "user", "u_1")

	WithContext(ctx, zap.New(core)).Info("hello")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user", fields["actor_type"])
	assert.Equal(t, "u_1", fields["actor_id"])
	assert.Equal(t, "", fields["trace_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}
