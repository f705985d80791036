package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPaymentKeysByMode(t *testing.T) {
	t.Setenv("YOCO_LIVE_SECRET_KEY", "sk_live_1")
	t.Setenv("YOCO_TEST_SECRET_KEY", "sk_test_1")
	t.Setenv("PAYMENT_MODE_DEFAULT", "LIVE")

	cfg := Load()

	assert.Equal(t, "live", cfg.Payment.DefaultMode)
	assert.Equal(t, "sk_live_1", cfg.Payment.SecretKey("live"))
	assert.Equal(t, "sk_test_1", cfg.Payment.SecretKey("test"))
	assert.Equal(t, "", cfg.Payment.SecretKey("sandbox"))
}

func TestWebhookSecretByModeFallsBackToShared(t *testing.T) {
	t.Setenv("YOCO_WEBHOOK_SECRET", "whsec_shared")
	t.Setenv("YOCO_TEST_WEBHOOK_SECRET", "whsec_test")

	cfg := Load()

	assert.Equal(t, "whsec_test", cfg.Payment.WebhookSecret("TEST"))
	assert.Equal(t, "whsec_shared", cfg.Payment.WebhookSecret("live"))
	assert.Equal(t, "", cfg.Payment.WebhookSecret("sandbox"))
}

func TestParseAdminAPIKeysSkipsMalformedEntries(t *testing.T) {
	keys := parseAdminAPIKeys("ops:admin:k1, broken, support:SUPPORT:k2,::")

	require.Len(t, keys, 2)
	assert.Equal(t, AdminAPIKey{ID: "ops", Role: "admin", Key: "k1"}, keys[0])
	assert.Equal(t, AdminAPIKey{ID: "support", Role: "support", Key: "k2"}, keys[1])
}

func TestPlanCatalogDefaultsWhenFileMissing(t *testing.T) {
	holder, err := NewPlanCatalogHolderFromPaths(t.TempDir())
	require.NoError(t, err)

	plan, ok := holder.Get().Find("PRO")
	require.True(t, ok)
	assert.Equal(t, int64(74700), plan.Price)
}

func TestPlanCatalogLoadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("plans:\n  - id: pro\n    name: Pro\n    price: 79900\n  - id: agency\n    name: Agency\n    price: 199900\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plans.yml"), content, 0o600))

	holder, err := NewPlanCatalogHolderFromPaths(dir)
	require.NoError(t, err)

	plan, ok := holder.Get().Find("agency")
	require.True(t, ok)
	assert.Equal(t, int64(199900), plan.Price)
}

func TestPlanCatalogRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("plans:\n  - id: pro\n    price: 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plans.yml"), content, 0o600))

	_, err := NewPlanCatalogHolderFromPaths(dir)
	assert.Error(t, err)
}
