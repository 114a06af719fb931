package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://api.spyglass.dev/api/v1", cfg.BaseURL)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.WorkspaceID)
}

func TestLoad_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
base_url: https://staging.spyglass.dev/api/v1
workspace_id: ws-staging
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://staging.spyglass.dev/api/v1", cfg.BaseURL)
	require.Equal(t, "ws-staging", cfg.WorkspaceID)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "workspace_id: ws-file\n")
	t.Setenv("SPYGLASS_WORKSPACE_ID", "ws-env")
	t.Setenv("SPYGLASS_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ws-env", cfg.WorkspaceID)
	require.Equal(t, "env-token", cfg.Token)
}

func TestSidebarStateRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spyglass")

	require.False(t, LoadSidebarCollapsed(dir))
	require.NoError(t, SaveSidebarCollapsed(dir, true))
	require.True(t, LoadSidebarCollapsed(dir))
	require.NoError(t, SaveSidebarCollapsed(dir, false))
	require.False(t, LoadSidebarCollapsed(dir))
}

func TestLoadProfiles_MissingFileIsEmpty(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "profiles.yaml"))
	require.NoError(t, err)
	require.Empty(t, ProfileNames(profiles))
}

func TestLoadProfiles_KeepsFileOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, `
staging:
  base_url: https://staging.spyglass.dev/api/v1
  workspace_id: ws-staging
prod:
  workspace_id: ws-prod
`)

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Equal(t, []string{"staging", "prod"}, ProfileNames(profiles))
}

func TestApplyProfile_OverlaysSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, `
staging:
  base_url: https://staging.spyglass.dev/api/v1
  workspace_id: ws-staging
  log_level: debug
`)
	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	cfg := &Config{BaseURL: "https://api.spyglass.dev/api/v1", Token: "tok"}
	require.NoError(t, ApplyProfile(cfg, profiles, "staging"))
	require.Equal(t, "https://staging.spyglass.dev/api/v1", cfg.BaseURL)
	require.Equal(t, "ws-staging", cfg.WorkspaceID)
	require.Equal(t, "debug", cfg.LogLevel)
	// settings the profile does not name stay untouched
	require.Equal(t, "tok", cfg.Token)
}

func TestApplyProfile_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeFile(t, path, `
bad:
  workspce_id: typo
`)
	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	cfg := &Config{}
	require.Error(t, ApplyProfile(cfg, profiles, "bad"))
	require.Error(t, ApplyProfile(cfg, profiles, "missing"))
	require.NoError(t, ApplyProfile(cfg, profiles, ""))
}
