package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("API_BASE_URL", "")

	cfg := Load()

	assert.Equal(t, DefaultBackendURL, cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, cfg.API.Timeout, cfg.API.UploadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.GCTime)
	assert.Equal(t, "dxt_admin_session", cfg.Session.CookieName)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_BackendURLAliases(t *testing.T) {
	aliases := []string{"API_BASE_URL", "NEXT_PUBLIC_API_BASE_URL", "BACKEND_URL", "NEXT_PUBLIC_BACKEND_URL"}
	for _, key := range aliases {
		t.Run(key, func(t *testing.T) {
			viper.Reset()
			for _, other := range aliases {
				t.Setenv(other, "")
			}
			t.Setenv(key, "https://api.example.com/")

			cfg := Load()

			assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
		})
	}
}

func TestLoad_BackendURLAliasOrder(t *testing.T) {
	viper.Reset()
	t.Setenv("API_BASE_URL", "")
	t.Setenv("NEXT_PUBLIC_API_BASE_URL", "")
	t.Setenv("BACKEND_URL", "https://backend.example.com")
	t.Setenv("NEXT_PUBLIC_BACKEND_URL", "https://public.example.com")

	cfg := Load()

	assert.Equal(t, "https://backend.example.com", cfg.API.BaseURL)
}

func TestLoad_UploadTimeoutOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("API_TIMEOUT", "30s")
	t.Setenv("API_UPLOAD_TIMEOUT", "10m")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://admin.example.com, ,https://ops.example.com")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.API.UploadTimeout)
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.Server.AllowedOrigins)
}

func TestRedisConfig_InMemory(t *testing.T) {
	assert.True(t, RedisConfig{Host: "memory"}.InMemory())
	assert.False(t, RedisConfig{Host: "localhost"}.InMemory())
}
