package server

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
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadServerConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())

	tick, err := cfg.Tick()
	require.NoError(t, err)
	assert.Equal(t, time.Second, tick)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, rules.RoundTimeLimit)
	assert.Equal(t, []int{4, 8, 12}, rules.RoundCounts)
	assert.Empty(t, cfg.Server.HistoryFile)
	assert.Equal(t, 1000, cfg.Server.HistoryLimit)
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
server {
  port          = 9090
  tick_interval = "500ms"
  history_file  = "history.json"
  history_limit = 50
}

game {
  round_time_limit = "30s"
  attempts         = 3
  round_counts     = [2, 4]
}

catalog {
  path = "hints.csv"
}
`)
	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:9090", cfg.GetServerAddress())
	assert.Equal(t, "history.json", cfg.Server.HistoryFile)
	assert.Equal(t, 50, cfg.Server.HistoryLimit)
	assert.Equal(t, "hints.csv", cfg.Catalog.Path)
	assert.Equal(t, 5, cfg.Server.LeaderboardTop)

	tick, err := cfg.Tick()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, tick)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, rules.RoundTimeLimit)
	assert.Equal(t, 3, rules.StartingAttempts)
	assert.Equal(t, 85.0, rules.FuzzyThreshold)
	assert.Equal(t, 2*time.Second, rules.TransitionDelay)
	assert.Equal(t, []int{2, 4}, rules.RoundCounts)
}

func TestLoadServerConfig_ServerBlockOnly(t *testing.T) {
	cfg, err := LoadServerConfig(writeConfig(t, "server {}\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultServerConfig(), cfg)
}

func TestLoadServerConfig_ParseError(t *testing.T) {
	_, err := LoadServerConfig(writeConfig(t, "server {\n"))
	assert.Error(t, err)
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Server.Port = 70000 }},
		{"bad tick", func(c *ServerConfig) { c.Server.TickInterval = "soon" }},
		{"zero tick", func(c *ServerConfig) { c.Server.TickInterval = "0s" }},
		{"bad top", func(c *ServerConfig) { c.Server.LeaderboardTop = -1 }},
		{"bad history limit", func(c *ServerConfig) { c.Server.HistoryLimit = -1 }},
		{"bad limit", func(c *ServerConfig) { c.Game.RoundTimeLimit = "forever" }},
		{"bad attempts", func(c *ServerConfig) { c.Game.Attempts = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
