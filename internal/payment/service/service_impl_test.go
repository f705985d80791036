package service_test

import (
	"context"
	"errors"
	"testing"

	auditrepo "github.com/smallbiznis/hrledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/hrledger/internal/audit/service"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/internal/payment/adapters"
	"github.com/smallbiznis/hrledger/internal/payment/adapters/yoco"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"github.com/smallbiznis/hrledger/internal/payment/repository"
	"github.com/smallbiznis/hrledger/internal/payment/service"
	"github.com/smallbiznis/hrledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T, payment config.PaymentConfig) (paymentdomain.Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Repo:  auditrepo.Provide(),
	})
	svc := service.NewService(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Cfg:      config.Config{Payment: payment},
		Repo:     repository.Provide(),
		Adapters: adapters.NewRegistry(yoco.NewFactory()),
		AuditSvc: audit,
	})
	return svc, db
}

func TestModeFallsBackToDefault(t *testing.T) {
	svc, _ := newService(t, config.PaymentConfig{DefaultMode: "test"})

	mode, err := svc.Mode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.ModeTest, mode)
}

func TestSetModeSwitchesVerifierKeyAndAudits(t *testing.T) {
	svc, db := newService(t, config.PaymentConfig{
		DefaultMode:       "test",
		YocoLiveSecretKey: "sk_live_1",
		YocoTestSecretKey: "sk_test_1",
	})
	ctx := context.Background()

	verifier, err := svc.Verifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.ModeTest, verifier.Mode())

	require.NoError(t, svc.SetMode(ctx, paymentdomain.ModeLive, "admin_key:ops"))

	verifier, err = svc.Verifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.ModeLive, verifier.Mode())
	assert.Equal(t, int64(1), testutil.Count(t, db, "audit_logs",
		"action = ? AND actor_type = ? AND actor_id = ?", "settings.payment_mode_changed", "admin", "admin_key:ops"))
}

func TestVerifierMissingKeyIsConfigError(t *testing.T) {
	svc, _ := newService(t, config.PaymentConfig{
		DefaultMode:       "live",
		YocoTestSecretKey: "sk_test_only",
	})

	_, err := svc.Verifier(context.Background())
	var cfgErr *paymentdomain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, paymentdomain.ModeLive, cfgErr.Mode)
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	svc, _ := newService(t, config.PaymentConfig{DefaultMode: "test"})
	assert.ErrorIs(t, svc.SetMode(context.Background(), "sandbox", "admin_key:ops"), paymentdomain.ErrInvalidMode)
}
