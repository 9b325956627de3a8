package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.CognitoRegion != "ap-northeast-1" {
		t.Errorf("CognitoRegion = %q, want %q", cfg.CognitoRegion, "ap-northeast-1")
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:8000")
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want %v", cfg.APITimeout, 10*time.Second)
	}
	if cfg.StateDBPath != "manabu.db" {
		t.Errorf("StateDBPath = %q, want %q", cfg.StateDBPath, "manabu.db")
	}
	if cfg.AuthCacheTTL != 5*time.Second {
		t.Errorf("AuthCacheTTL = %v, want %v", cfg.AuthCacheTTL, 5*time.Second)
	}
	if cfg.IdleTimeout != 75*time.Minute {
		t.Errorf("IdleTimeout = %v, want %v", cfg.IdleTimeout, 75*time.Minute)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.RateLimitAuth != 10 {
		t.Errorf("RateLimitAuth = %d, want %d", cfg.RateLimitAuth, 10)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
}

func TestLoad_CognitoVarsAreOptional(t *testing.T) {
	// プールID・クライアントIDの欠如はLoadの失敗ではなく、
	// 操作時のCONFIG_ERRORとして扱われる
	t.Setenv("COGNITO_USER_POOL_ID", "")
	t.Setenv("COGNITO_CLIENT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CognitoConfigured() {
		t.Error("CognitoConfigured() = true, want false")
	}
}

func TestLoad_CognitoConfigured(t *testing.T) {
	t.Setenv("COGNITO_USER_POOL_ID", "ap-northeast-1_abc123")
	t.Setenv("COGNITO_CLIENT_ID", "client-abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.CognitoConfigured() {
		t.Error("CognitoConfigured() = false, want true")
	}
	if cfg.CognitoUserPoolID != "ap-northeast-1_abc123" {
		t.Errorf("CognitoUserPoolID = %q, want %q", cfg.CognitoUserPoolID, "ap-northeast-1_abc123")
	}
}

func TestLoad_OverrideValues(t *testing.T) {
	t.Setenv("AUTH_CACHE_TTL", "10s")
	t.Setenv("IDLE_TIMEOUT", "30m")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_AUTH", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AuthCacheTTL != 10*time.Second {
		t.Errorf("AuthCacheTTL = %v, want %v", cfg.AuthCacheTTL, 10*time.Second)
	}
	if cfg.IdleTimeout != 30*time.Minute {
		t.Errorf("IdleTimeout = %v, want %v", cfg.IdleTimeout, 30*time.Minute)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
	if cfg.RateLimitAuth != 5 {
		t.Errorf("RateLimitAuth = %d, want %d", cfg.RateLimitAuth, 5)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("IDLE_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.IdleTimeout != 75*time.Minute {
		t.Errorf("IdleTimeout = %v, want default %v", cfg.IdleTimeout, 75*time.Minute)
	}
}

func TestLoad_NonPositiveTTLReturnsError(t *testing.T) {
	t.Setenv("AUTH_CACHE_TTL", "-5s")

	if _, err := Load(); err == nil {
		t.Error("expected error for non-positive AUTH_CACHE_TTL")
	}
}
