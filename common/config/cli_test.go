package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCLI_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Empty(t, cfg.Profiles)
	assert.Equal(t, path, cfg.Path())
}

func TestSaveProfile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadCLI(path)
	require.NoError(t, err)

	require.NoError(t, cfg.SaveProfile("staging", &Profile{IngestURL: "https://ingest.staging.test/", Token: "tok"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", loaded.CurrentProfile)

	p := loaded.Resolve("")
	assert.Equal(t, "https://ingest.staging.test", p.IngestURL)
	assert.Equal(t, "tok", p.Token)
}

func TestResolve_EnvOverrides(t *testing.T) {
	t.Setenv("MODELCTL_URL", "http://override:9000")
	t.Setenv("MODELCTL_TOKEN", "env-token")

	cfg := DefaultCLI()
	cfg.Profiles["default"] = &Profile{IngestURL: "http://file:8080", Token: "file-token"}

	p := cfg.Resolve("")
	assert.Equal(t, "http://override:9000", p.IngestURL)
	assert.Equal(t, "env-token", p.Token)
}

func TestResolve_UnknownProfile(t *testing.T) {
	p := DefaultCLI().Resolve("nope")
	assert.Equal(t, DefaultIngestURL, p.IngestURL)
	assert.Empty(t, p.Token)
}

func TestLoadCLI_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [unclosed"), 0o600))

	_, err := LoadCLI(path)
	assert.Error(t, err)
}
