package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Empty(t, cfg.Username)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	cfg.Username = "alice"
	cfg.DefaultWorkspace = "acme"
	require.NoError(t, cfg.Save())

	reloaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", reloaded.Username)
	assert.Equal(t, "acme", reloaded.DefaultWorkspace)
}

func TestLoadFromMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(":\nnot yaml: ["), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(envWorkspace, "env-workspace")
	t.Setenv(envOAuthKey, "env-key")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, "env-workspace", cfg.DefaultWorkspace)
	assert.Equal(t, "env-key", cfg.OAuthKey)
}

func TestSetGet(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.Set("default_repository", "website"))
	got, err := cfg.Get("default_repository")
	require.NoError(t, err)
	assert.Equal(t, "website", got)

	assert.Error(t, cfg.Set("nope", "x"))
	_, err = cfg.Get("nope")
	assert.Error(t, err)
}

func TestClearAuth(t *testing.T) {
	cfg := &Config{Username: "alice"}
	cfg.ClearAuth()
	assert.Empty(t, cfg.Username)
}
