package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MalformedYAML_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "agentmemdb.yaml"), []byte("store: [this is not valid: yaml"), 0644))

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestLoad_EmptyProjectConfig_KeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "agentmemdb.yaml"), []byte(""), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Store, cfg.Store)
}

func TestLoad_UserConfigThenProjectConfig_ProjectWins(t *testing.T) {
	tmpDir := t.TempDir()
	xdgDir := filepath.Join(tmpDir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	userCfgDir := filepath.Join(xdgDir, "agentmemdb")
	require.NoError(t, os.MkdirAll(userCfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(userCfgDir, "config.yaml"), []byte("store:\n  dim: 100\n"), 0644))

	projectDir := filepath.Join(tmpDir, "project")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "agentmemdb.yaml"), []byte("store:\n  dim: 200\n"), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Store.Dim)
}

func TestValidate_ZeroDimAllowed(t *testing.T) {
	cfg := NewConfig()
	cfg.Store.Dim = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeDimRejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Store.Dim = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_NegativeMaxElementsRejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Store.MaxElements = -5
	assert.Error(t, cfg.Validate())
}

func TestValidate_ZeroOversampleMultiplierRejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Query.OversampleMultiplier = 0
	assert.Error(t, cfg.Validate())
}

func TestGetUserConfigPath_FallsBackToHomeWithoutXDG(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", tmpHome)

	path := GetUserConfigPath()
	assert.Equal(t, filepath.Join(tmpHome, ".config", "agentmemdb", "config.yaml"), path)
}

func TestWriteYAML_CreatesReadableFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "..", "agentmemdb.yaml")
	cfg := NewConfig()

	require.NoError(t, cfg.WriteYAML(filepath.Clean(path)))
	_, err := os.Stat(filepath.Clean(path))
	assert.NoError(t, err)
}
