package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.EventLog.MaxEvents)
	assert.Equal(t, 5*time.Minute, cfg.EventLog.Retention)
	assert.Equal(t, time.Minute, cfg.EventLog.SweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.Timers.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Timers.SweepInterval)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("EVENT_LOG_RETENTION", "90s")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.EventLog.Retention)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - glad
  - sad
  - " mad "
timer:
  max_duration: 3600
  default_duration: 300
`), 0o600))

	board, err := LoadBoard(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"glad", "sad", "mad"}, board.Categories)
	assert.Equal(t, 3600, board.Timer.MaxDuration)
	assert.Equal(t, 300, board.Timer.DefaultDuration)
}

func TestLoadBoardErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "duplicate category", content: "categories: [a, a]"},
		{name: "blank category", content: "categories: [a, ' ']"},
		{name: "negative max", content: "timer:\n  max_duration: -1"},
		{name: "not yaml", content: "categories: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := LoadBoard(path)
			assert.Error(t, err)
		})
	}

	board, err := LoadBoard("")
	require.NoError(t, err)
	assert.Empty(t, board.Categories)

	_, err = LoadBoard(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(Config{LogLevel: "warn", LogFormat: "json"}, &buf))

	log.Info().Msg("hidden")
	log.Warn().Str("session_id", "7").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"session_id":"7"`)

	assert.Error(t, SetupLogger(Config{LogLevel: "loud"}, &buf))
}
