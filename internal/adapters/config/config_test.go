package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Pricing.TTL)
	assert.Equal(t, 10*time.Second, cfg.Pricing.Timeout)
	assert.Equal(t, int64(1_000_000), cfg.Pricing.SwapAmount)
	assert.Equal(t, 1e9, cfg.Pricing.ScalingFactor)
	assert.Equal(t, "SOL", cfg.Pricing.BaseSymbol)
	assert.Equal(t, []string{"FATCAT:AHdVQs56QpEEkRx6m8yiYYEiqM2sKjQxVd6mGH12pump"}, cfg.Pricing.Tokens)
	assert.True(t, cfg.AI.ChatEnabled())
	assert.Equal(t, 4, cfg.AI.MaxToolRounds)
	assert.Empty(t, cfg.AI.PromptsDir)
	assert.Equal(t, "docs2", cfg.Knowledge.DocsDir)
	assert.Equal(t, time.Minute, cfg.Logging.MetricsFlushInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("PRICE_CACHE_TTL", "30s")
	t.Setenv("PRICE_TOKENS", "FATCAT:mintA,BONK:mintB")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Pricing.TTL)
	assert.Equal(t, []string{"FATCAT:mintA", "BONK:mintB"}, cfg.Pricing.Tokens)
	assert.False(t, cfg.AI.ChatEnabled())
}

func TestValidate(t *testing.T) {
	t.Run("malformed token pair", func(t *testing.T) {
		t.Setenv("PRICE_TOKENS", "FATCAT")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SYMBOL:MINT")
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		t.Setenv("PRICE_CACHE_TTL", "0s")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "price_cache_ttl")
	})

	t.Run("zero burst", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_BURST", "0")
		_, err := Load()
		require.Error(t, err)
	})
}
