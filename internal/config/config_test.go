package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/dockstream/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadExplicitFile(t *testing.T) {
	path := writeConfig(t, `
token: secret
tail: 50
timestamps: true
hosts:
  - id: prod-1
    name: Production
    endpoint: wss://prod.example.com
  - id: local
    endpoint: unix:///var/run/docker.sock
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 50, cfg.Tail)
	assert.True(t, cfg.Timestamps)
	assert.True(t, cfg.Follow, "follow defaults to true")
	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, "Production", cfg.Hosts[0].Name)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "token: x\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Tail)
	assert.True(t, cfg.Follow)
	assert.False(t, cfg.Timestamps)
	assert.Equal(t, model.StreamOptions{Tail: 100, Follow: true}, cfg.Options())
}

func TestConfigDirectory(t *testing.T) {
	cfg := Config{Hosts: []HostConfig{
		{ID: "a", Endpoint: "ws://a.example.com"},
	}}

	dir := cfg.Directory()
	endpoint, err := dir.Endpoint("a")
	require.NoError(t, err)
	assert.Equal(t, "ws://a.example.com", endpoint)
}
