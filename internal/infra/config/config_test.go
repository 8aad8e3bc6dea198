package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "data/history", cfg.History.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stdout", cfg.Log.Output)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  allowed_origins:
    - "http://localhost:3000"
history:
  path: /tmp/test-history
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/test-history", cfg.History.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
`)

	t.Setenv("PLAYALONG_ADDR", ":7070")
	t.Setenv("PLAYALONG_HISTORY_PATH", "/env/history")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "/env/history", cfg.History.Path)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
log:
  level: loud
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}
