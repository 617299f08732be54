package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, int64(314572800), cfg.Share.MaxFileSize)
	assert.Equal(t, 24*time.Hour, cfg.Share.Retention)
	assert.Equal(t, 3, cfg.Share.CreateAttempts)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Reviews.StatsTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "burnshare.db")
	t.Setenv("SHARE_RETENTION", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "burnshare.db", cfg.Database.URL)
	assert.Equal(t, 2*time.Hour, cfg.Share.Retention)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
blob:
  driver: memory
cache:
  driver: memory
share:
  max_file_size: 1024
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Blob.Driver)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, int64(1024), cfg.Share.MaxFileSize)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown database", func(c *Config) { c.Database.Driver = "mysql" }},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"unknown blob", func(c *Config) { c.Blob.Driver = "gcs" }},
		{"zero file size", func(c *Config) { c.Share.MaxFileSize = 0 }},
		{"zero retention", func(c *Config) { c.Share.Retention = 0 }},
		{"zero attempts", func(c *Config) { c.Share.CreateAttempts = 0 }},
		{"zero sweep interval", func(c *Config) { c.Sweep.Interval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
