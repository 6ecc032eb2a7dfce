package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.KVPath)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.True(t, cfg.Server.Enabled)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `kv_path: /tmp/quickie-test.db
persist_delay: 250ms
server:
  url: https://notes.example.com
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/quickie-test.db", cfg.KVPath)
	assert.Equal(t, 250*time.Millisecond, cfg.PersistDelay)
	assert.Equal(t, "https://notes.example.com", cfg.Server.URL)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- broken"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadExpandsHomeInKVPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("kv_path: ~/notes/kv.db\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes", "kv.db"), cfg.KVPath)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yml")

	original := &Config{
		KVPath:       "/data/kv.db",
		PersistDelay: time.Second,
		Server:       ServerConfig{URL: "http://srv:9000", Enabled: true},
	}
	require.NoError(t, original.Save(path))
	assert.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.KVPath, loaded.KVPath)
	assert.Equal(t, original.PersistDelay, loaded.PersistDelay)
	assert.Equal(t, original.Server, loaded.Server)
}
