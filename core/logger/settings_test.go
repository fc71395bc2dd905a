package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/bakerybot/core/config"
)

func TestResolveDefaults(t *testing.T) {
	t.Setenv("TRACE", "")
	t.Setenv("LOG_TRACE", "")

	s := resolve(nil)
	assert.Equal(t, slog.LevelInfo, s.level)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, defaultKeyOrder, s.keyOrder)
	assert.Equal(t, [2]int{1, 50}, [2]int{s.sampleNum, s.sampleDen})
	assert.False(t, s.trace)
	assert.Empty(t, s.file)

	s = resolve(&coreconfig.Config{})
	assert.Equal(t, "prod", s.profile)
}

func TestResolveLogging(t *testing.T) {
	t.Setenv("LOG_TRACE", "yes")
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "WARNING",
		Profile:     "Dev",
		KeysOrder:   "event, ts ,level",
		DebugSample: "2/10",
		Dir:         "logs",
		BotFile:     "bot.log",
	}}
	s := resolve(cfg)
	assert.Equal(t, slog.LevelWarn, s.level)
	assert.Equal(t, formatKV, s.format)
	assert.Equal(t, []string{"event", "ts", "level"}, s.keyOrder)
	assert.Equal(t, [2]int{2, 10}, [2]int{s.sampleNum, s.sampleDen})
	assert.True(t, s.trace)
	assert.Equal(t, filepath.Join("logs", "bot.log"), s.file)

	cfg.Logging.Format = "json"
	cfg.Logging.DebugSample = "0/0"
	s = resolve(cfg)
	assert.Equal(t, formatJSON, s.format)
	assert.Zero(t, s.sampleDen)

	cfg.Logging.DebugSample = "-1/4"
	assert.Equal(t, 50, resolve(cfg).sampleDen)
}
