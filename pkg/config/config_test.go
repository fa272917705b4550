package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Contains(t, cfg.Database.DSN, "sunat-noticia.db")
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "@every 1h", cfg.Scrapers.Mensajes.Schedule)
	assert.Equal(t, "@every 1h", cfg.Scrapers.Facebook.Schedule)
	assert.False(t, cfg.Scrapers.Mensajes.Enabled)
	assert.Equal(t, 10, cfg.Ads.WindowSize)
	assert.Zero(t, cfg.Ads.AdsPerWindow, "no ads per window unless enabled")
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  listen: ":9090"
  timeout: 10s
database:
  dsn: "file:test.db"
scrapers:
  mensajes:
    enabled: true
    schedule: "0 * * * *"
  facebook:
    enabled: true
    schedule: "30 * * * *"
    page_id: "sunat"
    access_token: "token123"
ads:
  enabled: true
  window_size: 8
  ads_per_window: 2
  pool:
    - id: ad-dabog
      title: Dabog
      content: Promo
      source: Dabog
      source_url: https://dabog.example.com
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.True(t, cfg.Scrapers.Mensajes.Enabled)
	assert.Equal(t, "0 * * * *", cfg.Scrapers.Mensajes.Schedule)
	assert.Equal(t, "sunat", cfg.Scrapers.Facebook.PageID)
	assert.Equal(t, "token123", cfg.Scrapers.Facebook.AccessToken)

	assert.True(t, cfg.Ads.Enabled)
	assert.Equal(t, 8, cfg.Ads.WindowSize)
	assert.Equal(t, 2, cfg.Ads.AdsPerWindow)
	require.Len(t, cfg.Ads.Pool, 1)

	pool := cfg.Ads.PoolAds(time.Now())
	require.Len(t, pool, 1)
	assert.Equal(t, "ad-dabog", pool[0].ID)
	assert.True(t, pool[0].Sponsored)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("FB_TOKEN", "secret-token")

	cfg, err := Load(writeConfig(t, `
scrapers:
  facebook:
    enabled: true
    page_id: sunat
    access_token: "${FB_TOKEN}"
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Scrapers.Facebook.AccessToken)
}

func TestLoad_AdConstraintRejectedAtLoad(t *testing.T) {
	_, err := Load(writeConfig(t, `
ads:
  enabled: true
  window_size: 10
  ads_per_window: 6
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ads_per_window")
}

func TestLoad_FacebookCredentialsRequired(t *testing.T) {
	_, err := Load(writeConfig(t, `
scrapers:
  facebook:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_id")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [not a mapping"))
		assert.Error(t, err)
	})
}
