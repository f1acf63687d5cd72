package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SMTP_USER", "shop@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, int32(8), cfg.PostgresMaxConns)
	assert.Equal(t, 10*time.Minute, cfg.CategoryCacheTTL)
	assert.Equal(t, "shop@example.com", cfg.AdminEmail, "admin mailbox falls back to smtp user")
	assert.True(t, cfg.CookieSecure)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("CATEGORY_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers())
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, 30*time.Second, cfg.CategoryCacheTTL)
}

func TestLoadUnsetBrokersUsesDefault(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "") // restores the original value afterwards
	require.NoError(t, os.Unsetenv("KAFKA_BROKERS"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers())
}

func TestLoadEmptyBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	// set but empty keeps the value; notifications then run in-process
	assert.Empty(t, cfg.KafkaBrokers())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CATEGORY_CACHE_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
