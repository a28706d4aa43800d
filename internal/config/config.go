package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Identity IdentityConfig
	Redis    RedisConfig
	Session  SessionConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	LoginRateLimit int
	LoginWindow    time.Duration
}

// APIConfig describes the backend REST service every screen talks to.
type APIConfig struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type IdentityConfig struct {
	APIKey    string
	SignInURL string
	TokenURL  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// InMemory reports whether redis-backed stores should be replaced by process memory.
func (c RedisConfig) InMemory() bool {
	return c.Host == "memory"
}

type SessionConfig struct {
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
}

type CacheConfig struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using environment variables: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	viper.SetDefault("API_BASE_URL", "")
	viper.SetDefault("API_TIMEOUT", "30s")
	viper.SetDefault("API_UPLOAD_TIMEOUT", "")
	viper.SetDefault("IDENTITY_SIGNIN_URL", "https://identitytoolkit.googleapis.com/v1")
	viper.SetDefault("IDENTITY_TOKEN_URL", "https://securetoken.googleapis.com/v1")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_COOKIE", "dxt_admin_session")
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("SESSION_SECURE_COOKIE", false)
	viper.SetDefault("LOGIN_RATE_LIMIT", 10)
	viper.SetDefault("LOGIN_RATE_WINDOW", "1m")
	viper.SetDefault("CACHE_STALE_TIME", "5m")
	viper.SetDefault("CACHE_GC_TIME", "10m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	apiTimeout := viper.GetDuration("API_TIMEOUT")
	uploadTimeout := viper.GetDuration("API_UPLOAD_TIMEOUT")
	if uploadTimeout <= 0 {
		uploadTimeout = apiTimeout
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
			LoginRateLimit: viper.GetInt("LOGIN_RATE_LIMIT"),
			LoginWindow:    viper.GetDuration("LOGIN_RATE_WINDOW"),
		},
		API: APIConfig{
			BaseURL:       backendURL(),
			Timeout:       apiTimeout,
			UploadTimeout: uploadTimeout,
		},
		Identity: IdentityConfig{
			APIKey:    viper.GetString("IDENTITY_API_KEY"),
			SignInURL: viper.GetString("IDENTITY_SIGNIN_URL"),
			TokenURL:  viper.GetString("IDENTITY_TOKEN_URL"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			CookieName:   viper.GetString("SESSION_COOKIE"),
			TTL:          viper.GetDuration("SESSION_TTL"),
			SecureCookie: viper.GetBool("SESSION_SECURE_COOKIE"),
		},
		Cache: CacheConfig{
			StaleTime: viper.GetDuration("CACHE_STALE_TIME"),
			GCTime:    viper.GetDuration("CACHE_GC_TIME"),
		},
	}
}

// DefaultBackendURL is used when no backend address is configured.
const DefaultBackendURL = "http://localhost:8080"

// backendURL resolves the backend address, accepting the names older
// deployments exported.
func backendURL() string {
	for _, key := range []string{"API_BASE_URL", "NEXT_PUBLIC_API_BASE_URL", "BACKEND_URL", "NEXT_PUBLIC_BACKEND_URL"} {
		if v := strings.TrimSpace(viper.GetString(key)); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return DefaultBackendURL
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
