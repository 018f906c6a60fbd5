package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.CryptoCacheTTL)
	assert.Equal(t, 20, cfg.CryptoTopLimit)
	assert.Len(t, cfg.CryptoIDs, 10)
	assert.Len(t, cfg.ForexTargets, 10)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}, cfg.StockSymbols)
	assert.Equal(t, "*/5 * * * *", cfg.CryptoUpdateCron)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CACHE_CRYPTO_TTL_MINUTES", "2")
	t.Setenv("CRYPTO_IDS", "bitcoin, ethereum ,")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2*time.Minute, cfg.CryptoCacheTTL)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, cfg.CryptoIDs)
	assert.True(t, cfg.LogPretty)
	// Unparseable numbers fall back to the default.
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
}
