package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("NOTIFY_TRANSPORT", "")
	t.Setenv("PURCHASE_STRICT_TRANSITIONS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "direct", cfg.Notify.Transport)
	assert.Equal(t, 30, cfg.Auth.ResetTokenExpiryMinutes)
	assert.False(t, cfg.Business.StrictPurchaseTransitions)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PURCHASE_STRICT_TRANSITIONS", "true")
	t.Setenv("RESET_TOKEN_EXPIRY_MINUTES", "15")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Business.StrictPurchaseTransitions)
	assert.Equal(t, 15, cfg.Auth.ResetTokenExpiryMinutes)
}

func TestGetEnvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.True(t, getEnvBool("SOME_FLAG", true))
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	require.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.ErrorIs(t, cfg.Validate(), ErrDefaultJWTSecret)

	t.Setenv("JWT_SECRET", "a-long-random-secret")
	assert.NoError(t, Load().Validate())
}

func TestValidateAllowsDefaultSecretInDevelopment(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "")

	assert.NoError(t, Load().Validate())
}
