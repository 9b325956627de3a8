package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Cognito
	// UserPoolIDとClientIDは意図的に必須としない。
	// 未設定のまま認証操作を行うと操作ごとにCONFIG_ERRORになる。
	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string

	// Backend API
	APIBaseURL string
	APITimeout time.Duration

	// State DB
	StateDBPath string

	// Session
	AuthCacheTTL time.Duration
	IdleTimeout  time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// TTL系の値が正でない場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.CognitoRegion = getEnvString("COGNITO_REGION", "ap-northeast-1")
	cfg.CognitoUserPoolID = os.Getenv("COGNITO_USER_POOL_ID")
	cfg.CognitoClientID = os.Getenv("COGNITO_CLIENT_ID")

	cfg.APIBaseURL = getEnvString("API_BASE_URL", "http://localhost:8000")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)

	cfg.StateDBPath = getEnvString("STATE_DB_PATH", "manabu.db")

	cfg.AuthCacheTTL = getEnvDuration("AUTH_CACHE_TTL", 5*time.Second)
	cfg.IdleTimeout = getEnvDuration("IDLE_TIMEOUT", 75*time.Minute)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.AuthCacheTTL <= 0 {
		return nil, fmt.Errorf("AUTH_CACHE_TTL must be positive: %v", cfg.AuthCacheTTL)
	}
	if cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("IDLE_TIMEOUT must be positive: %v", cfg.IdleTimeout)
	}

	return cfg, nil
}

// CognitoConfigured はIdPの必須識別子（プールIDとクライアントID）が
// 設定済みかを返す。
func (c *Config) CognitoConfigured() bool {
	return c.CognitoUserPoolID != "" && c.CognitoClientID != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
