// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// SSOとAIの認証情報は任意: 未設定の場合、対応する機能のみが
// 設定エラーとして degrade し、プロセス自体はクラッシュしない。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int // 秒。デフォルトは7日

	// SSO (Scalekit互換の外部IdP)
	SSOEnvironmentURL string
	SSOClientID       string
	SSOClientSecret   string
	SSORedirectURL    string

	// コネクタ (Gmail等のOAuth連携)
	GmailConnectionID    string
	ConnectorRedirectURI string

	// AI
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	// Upload
	UploadMaxSize int64

	// Rate Limit (req/min/user)
	RateLimitGeneral int
	RateLimitUpload  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// SSOConfigured はSSO機能に必要な認証情報が揃っているかを返す。
func (c *Config) SSOConfigured() bool {
	return c.SSOClientID != "" && c.SSOClientSecret != ""
}

// AIConfigured はAI解析機能に必要なAPIキーが設定されているかを返す。
func (c *Config) AIConfigured() bool {
	return c.GeminiAPIKey != ""
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 7*24*60*60)

	cfg.SSOEnvironmentURL = getEnvString("SSO_ENVIRONMENT_URL", "https://vivo.scalekit.dev")
	cfg.SSOClientID = os.Getenv("SSO_CLIENT_ID")
	cfg.SSOClientSecret = os.Getenv("SSO_CLIENT_SECRET")
	cfg.SSORedirectURL = getEnvString("SSO_REDIRECT_URL", cfg.BaseURL+"/api/auth/sso/callback")

	cfg.GmailConnectionID = getEnvString("SSO_GMAIL_CONNECTION_ID", "gmail")
	cfg.ConnectorRedirectURI = getEnvString("SSO_CONNECTOR_REDIRECT_URI",
		cfg.SSOEnvironmentURL+"/sso/v1/oauth/callback")

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.5-flash")
	cfg.AITimeout = getEnvDuration("AI_TIMEOUT", 120*time.Second)

	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 20971520) // 20MB

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
