package configs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/configs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := configs.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Headless)
	assert.Equal(t, 1366, cfg.ViewportWidth)
	assert.Equal(t, 768, cfg.ViewportHeight)
	assert.Equal(t, 3, cfg.MaxConcurrentPages)
	assert.Zero(t, cfg.RateLimitPerMin)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.SettleDelay)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "artifacts", cfg.ArtifactsDir)
	assert.Equal(t, "site_rules", cfg.RulesDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("VIEWPORT_WIDTH", "1920")
	t.Setenv("MAX_CONCURRENT_PAGES", "5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "12")
	t.Setenv("NAVIGATION_TIMEOUT_SECONDS", "45")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := configs.Load()
	require.NoError(t, err)

	assert.False(t, cfg.Headless)
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 5, cfg.MaxConcurrentPages)
	assert.Equal(t, 12, cfg.RateLimitPerMin)
	assert.Equal(t, 45*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDatabaseDSNRequiresAllVars(t *testing.T) {
	t.Setenv("DB_USER", "scout")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_NAME", "webscout")

	cfg, err := configs.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)

	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")

	cfg, err = configs.Load()
	require.NoError(t, err)
	assert.Equal(t, "scout:secret@tcp(db.internal:3307)/webscout?parseTime=true", cfg.DatabaseURL)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("VIEWPORT_WIDTH", "wide")
	_, err := configs.Load()
	assert.Error(t, err)
}
