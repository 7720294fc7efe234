package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.EqualValues(t, 32<<20, cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "models-site", cfg.Storage.SiteBucket)
	assert.Equal(t, "models-staging", cfg.Storage.StagingBucket)
	assert.Equal(t, "data", cfg.Storage.DataFolder)
	assert.Equal(t, "mongo", cfg.Status.Backend)
	assert.Equal(t, "model_status", cfg.Status.Mongo.Collection)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 60, cfg.RateLimit.Requests)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, "models.staged", cfg.Tessellation.Subject)
	assert.Equal(t, "file", cfg.DLQ.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
storage:
  backend: memory
  site_bucket: site-a
status:
  backend: postgres
  postgres:
    host: db
    password: secret
dlq:
  backend: jetstream
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "site-a", cfg.Storage.SiteBucket)
	assert.Equal(t, "postgres", cfg.Status.Backend)
	assert.Equal(t, "postgres://modelhub:secret@db:5432/modelhub?sslmode=disable", cfg.Status.Postgres.ConnString())
	assert.Equal(t, "jetstream", cfg.DLQ.Backend)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODELHUB_STORAGE_SITE_BUCKET", "env-site")
	t.Setenv("MODELHUB_LOCK_TTL", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-site", cfg.Storage.SiteBucket)
	assert.Equal(t, 5*time.Second, cfg.Lock.TTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Backend: "s3", SiteBucket: "site"},
			Status:  StatusConfig{Backend: "memory"},
			DLQ:     DLQConfig{Backend: "file"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"storage backend", func(c *Config) { c.Storage.Backend = "gcs" }, "unknown storage backend"},
		{"status backend", func(c *Config) { c.Status.Backend = "dynamo" }, "unknown status backend"},
		{"dlq backend", func(c *Config) { c.DLQ.Backend = "kafka" }, "unknown dlq backend"},
		{"site bucket", func(c *Config) { c.Storage.SiteBucket = "" }, "site_bucket"},
		{"jwt secret", func(c *Config) { c.Auth.Enabled = true }, "jwt_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
