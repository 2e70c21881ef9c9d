package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AuthorizationCodeTTL)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, "ui-client", cfg.Seed.ClientID)
	assert.Equal(t, []string{"http://localhost:8000/login/callback"}, cfg.Seed.ClientRedirectURI)

	sameSite, err := cfg.Auth.SameSite()
	require.NoError(t, err)
	assert.Equal(t, http.SameSiteNoneMode, sameSite)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LOKAL_ADDR", ":9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("CORS_ORIGINS", "https://ui.example.com")
	t.Setenv("SESSION_COOKIE_SAMESITE", "Lax")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://ui.example.com"}, cfg.CORSOrigins)

	sameSite, err := cfg.Auth.SameSite()
	require.NoError(t, err)
	assert.Equal(t, http.SameSiteLaxMode, sameSite)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "forever")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("unknown samesite policy", func(t *testing.T) {
		t.Setenv("SESSION_COOKIE_SAMESITE", "sometimes")
		_, err := FromEnv()
		require.Error(t, err)
	})

	for _, interval := range []string{"0s", "-1m"} {
		t.Run("non-positive cleanup interval "+interval, func(t *testing.T) {
			t.Setenv("CLEANUP_INTERVAL", interval)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "CLEANUP_INTERVAL")
		})
	}
}
