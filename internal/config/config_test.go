package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimal = `
telegram:
  token: "123:abc"
  admin_id: 77
catalog:
  base_url: "https://cms.example.com/"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(77), cfg.Telegram.OrdersChatID, "orders chat falls back to the admin")
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)

	assert.Equal(t, "https://cms.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, "data/catalog.json", cfg.Catalog.CacheFile)
	assert.Equal(t, 60*time.Second, cfg.Catalog.RefreshInterval)
	assert.Equal(t, 3, cfg.Catalog.RetryAttempts)
	assert.Equal(t, "data/order_counter.json", cfg.Orders.CounterFile)
	assert.Equal(t, time.Local, cfg.Orders.Location())
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.False(t, cfg.Email.Enabled())
	assert.False(t, cfg.Database.Enabled())
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadFullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 77
orders:
  timezone: "Europe/Moscow"
  counter_file: "/var/lib/bakery/counter.json"
catalog:
  base_url: "https://cms.example.com"
  refresh_interval: 2m
  retry_delay: 500ms
email:
  host: smtp.example.com
  to: ["staff@example.com"]
api:
  listen: ":9000"
  webapp_url: "https://shop.example.com/app"
  allowed_origins: ["https://shop.example.com"]
database:
  host: db
rate_limit:
  interval_ms: 500
  exclude_updates: ["Web_App"]
`))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Catalog.RefreshInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.RetryDelay)
	assert.Equal(t, "Europe/Moscow", cfg.Orders.Location().String())
	assert.Equal(t, 587, cfg.Email.Port)
	assert.Equal(t, 15*time.Second, cfg.Email.Timeout)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, []string{"web_app"}, cfg.RateLimit.ExcludeUpdates)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.API.AllowedOrigins)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CATALOG_BASE_URL", "https://other.example.com")
	t.Setenv("BOT_TOKEN", "999:zzz")
	t.Setenv("CATALOG_RETRY_ATTEMPTS", "5")

	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, "999:zzz", cfg.Telegram.Token)
	assert.Equal(t, 5, cfg.Catalog.RetryAttempts)
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]string{
		"missing base url": `
telegram: {token: "1:a"}
`,
		"relative base url": `
telegram: {token: "1:a"}
catalog: {base_url: "cms.local"}
`,
		"bad timezone": minimal + `
orders: {timezone: "Mars/Olympus"}
`,
		"email without recipients": minimal + `
email: {host: smtp.example.com}
`,
		"plain http webapp": minimal + `
api: {webapp_url: "http://shop.example.com"}
`,
		"missing token": `
catalog: {base_url: "https://cms.example.com"}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
