package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nejat", cfg.App.Name)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 12, cfg.API.PageSize)
	assert.Equal(t, 2, cfg.API.LookupRetries)
	assert.Equal(t, time.Second, cfg.API.RetryInterval)
	assert.Equal(t, 5*time.Minute, cfg.API.DetailStaleTime)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "https://api.nejat.example/")
	t.Setenv("API_PAGE_SIZE", "24")
	t.Setenv("APP_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.nejat.example", cfg.API.BaseURL)
	assert.Equal(t, 24, cfg.API.PageSize)
	assert.True(t, cfg.IsProduction())
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nejat.env")
	content := "API_BASE_URL=http://192.168.1.12:8080\nAPI_LOOKUP_RETRIES=4\nREDIS_ENABLED=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.12:8080", cfg.API.BaseURL)
	assert.Equal(t, 4, cfg.API.LookupRetries)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadWithPath_Missing(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Name: "nejat"},
			API:    APIConfig{BaseURL: "http://localhost:8080", PageSize: 12, LookupRetries: 2},
			Server: ServerConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing name", func(c *Config) { c.App.Name = "" }, true},
		{"relative url", func(c *Config) { c.API.BaseURL = "/nejat" }, true},
		{"ftp scheme", func(c *Config) { c.API.BaseURL = "ftp://host" }, true},
		{"zero page size", func(c *Config) { c.API.PageSize = 0 }, true},
		{"negative retries", func(c *Config) { c.API.LookupRetries = -1 }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
