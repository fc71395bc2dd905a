package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bakerybot/core/netutil"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Host: "  "}.Enabled())
	assert.True(t, Config{Host: "db"}.Enabled())
}

func TestConfigConnectionStrings(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bakery", Password: "p@ss", Name: "orders"}
	assert.Contains(t, cfg.DSN(), "host=db")
	assert.Contains(t, cfg.DSN(), "sslmode=disable")
	assert.Equal(t, "postgres://bakery:p%40ss@db:5432/orders?sslmode=disable", cfg.URL())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.URL(), "sslmode=require")
}

func TestUpFilesAndApplied(t *testing.T) {
	src := fstest.MapFS{
		"0002_add_index.up.sql":             {Data: []byte("SELECT 1")},
		"0001_create_order_journal.up.sql":   {Data: []byte("SELECT 1")},
		"0001_create_order_journal.down.sql": {Data: []byte("SELECT 1")},
		"README.md":                          {Data: []byte("docs")},
	}
	files, err := upFiles(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_create_order_journal.up.sql", "0002_add_index.up.sql"}, files)

	assert.EqualValues(t, 2, version("0002_add_index.up.sql"))
	assert.Zero(t, version("bogus.sql"))
	assert.Equal(t, []string{"0002_add_index.up.sql"}, appliedBetween(files, 1, 2))
	assert.Empty(t, appliedBetween(files, 2, 2))
}

func TestSource(t *testing.T) {
	embedded := fstest.MapFS{}
	src, err := Source(Config{}, embedded)
	require.NoError(t, err)
	assert.Equal(t, embedded, src)

	dir := t.TempDir()
	src, err = Source(Config{MigrationsDir: dir}, embedded)
	require.NoError(t, err)
	assert.NotEqual(t, embedded, src)

	_, err = Source(Config{}, nil)
	assert.Error(t, err)
}

func TestConnectGivesUp(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: "1", User: "u", Name: "n"}
	_, err := connect(context.Background(), cfg, netutil.Policy{Attempts: 2, Delay: time.Millisecond})
	assert.ErrorContains(t, err, "db connect")
}
