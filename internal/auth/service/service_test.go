package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/hrledger/internal/auth/domain"
	"github.com/smallbiznis/hrledger/internal/auth/service"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(fake *clock.FakeClock) domain.Service {
	return service.New(service.Params{
		Log: zap.NewNop(),
		Cfg: config.Config{
			AuthJWTSecret: "test-secret",
			AdminAPIKeys: []config.AdminAPIKey{
				{ID: "ops", Role: "admin", Key: "key-admin"},
				{ID: "help", Role: "support", Key: "key-support"},
			},
		},
		Clock: fake,
	})
}

func TestUserTokenRoundTrip(t *testing.T) {
	fake := clock.NewFakeClock(testNow)
	svc := newService(fake)

	token, err := svc.IssueUserToken(domain.User{ID: "user_1", Email: "owner@example.com"}, time.Hour)
	require.NoError(t, err)

	user, err := svc.AuthenticateUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", user.ID)
	assert.Equal(t, "owner@example.com", user.Email)

	fake.Advance(2 * time.Hour)
	_, err = svc.AuthenticateUser(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthenticateUserRejectsBadTokens(t *testing.T) {
	svc := newService(clock.NewFakeClock(testNow))
	ctx := context.Background()

	_, err := svc.AuthenticateUser(ctx, "")
	assert.ErrorIs(t, err, domain.ErrMissingToken)

	_, err = svc.AuthenticateUser(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_1",
		"exp": testNow.Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.AuthenticateUser(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user_1"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.AuthenticateUser(ctx, noExp)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticateAdmin(t *testing.T) {
	svc := newService(clock.NewFakeClock(testNow))
	ctx := context.Background()

	admin, err := svc.AuthenticateAdmin(ctx, "key-support")
	require.NoError(t, err)
	assert.Equal(t, "help", admin.KeyID)
	assert.Equal(t, "support", admin.Role)
	assert.Equal(t, "admin_key:help", admin.Actor())

	_, err = svc.AuthenticateAdmin(ctx, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)

	_, err = svc.AuthenticateAdmin(ctx, "")
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestUnconfiguredAuth(t *testing.T) {
	svc := service.New(service.Params{Log: zap.NewNop()})

	_, err := svc.AuthenticateUser(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	_, err = svc.AuthenticateAdmin(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
