package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 実行環境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数（および.envファイル）から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL      string
	DBConnectTimeout time.Duration
	DBMaxOpenConns   int

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// Session
	SessionSecret string
	SessionMaxAge time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral     int
	RateLimitEntryCreate int

	// Server
	Env         string
	Port        string
	PublicURL   string
	FrontendURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigins []string
}

// IsProduction は本番モードかどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、不足しているキーをすべて列挙したエラーを返す。
func Load() (*Config, error) {
	// .envは任意。存在しなければ環境変数のみを使う。
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}

	// Required fields
	var missing []string
	require := func(key string) string {
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			missing = append(missing, key)
		}
		return s
	}

	cfg.DatabaseURL = require("DATABASE_URL")
	cfg.GoogleClientID = require("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = require("GOOGLE_CLIENT_SECRET")
	cfg.SessionSecret = require("SESSION_SECRET")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if err := validateDatabaseURL(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	// Optional fields with defaults
	cfg.Env = strings.ToLower(v.GetString("APP_ENV"))
	if cfg.Env != EnvProduction {
		cfg.Env = EnvDevelopment
	}
	cfg.Port = v.GetString("PORT")
	cfg.PublicURL = strings.TrimRight(v.GetString("PUBLIC_URL"), "/")
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + cfg.Port
	}
	cfg.FrontendURL = strings.TrimRight(v.GetString("FRONTEND_URL"), "/")
	cfg.GoogleCallbackURL = v.GetString("GOOGLE_CALLBACK_URL")
	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = cfg.PublicURL + "/auth/google/callback"
	}

	cfg.SessionMaxAge = getDuration(v, "SESSION_MAX_AGE", 7*24*time.Hour)
	cfg.DBConnectTimeout = getDuration(v, "DB_CONNECT_TIMEOUT", 10*time.Second)
	cfg.DBMaxOpenConns = getPositiveInt(v, "DB_MAX_OPEN_CONNS", 10)
	cfg.RateLimitGeneral = getPositiveInt(v, "RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitEntryCreate = getPositiveInt(v, "RATE_LIMIT_ENTRY_CREATE", 30)

	cfg.CookieSecure = cfg.IsProduction()
	cfg.CookieDomain = v.GetString("COOKIE_DOMAIN")
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", "4000")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// validateDatabaseURL はpostgres形式で、プレースホルダーが残っていないことを確認する。
func validateDatabaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is malformed: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}
	if u.Hostname() == "" || u.Hostname() == "host" {
		return fmt.Errorf("DATABASE_URL has no real hostname")
	}
	if strings.Contains(raw, "[YOUR-PASSWORD]") {
		return fmt.Errorf("DATABASE_URL contains a placeholder password")
	}
	return nil
}

func getDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	s := v.GetString(key)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getPositiveInt(v *viper.Viper, key string, defaultVal int) int {
	if !v.IsSet(key) {
		return defaultVal
	}
	i := v.GetInt(key)
	if i <= 0 {
		return defaultVal
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.TrimRight(part, "/"))
		}
	}
	return out
}
