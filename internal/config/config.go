package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultProtectedPaths は認証が必要なパス接頭辞の既定値。
var DefaultProtectedPaths = []string{"/dashboard", "/profile", "/update-profile", "/api/upload"}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Routing
	RootDomain     string
	ProtectedPaths []string
	SignInPath     string

	// Profile
	TrialDays       int
	RedisURL        string
	ProfileCacheTTL time.Duration

	// CV export
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitExport  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// requiredVars はLoadが必須とする環境変数。
var requiredVars = []string{
	"DATABASE_URL",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_REDIRECT_URL",
	"SESSION_SECRET",
	"BASE_URL",
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む。既存の環境変数は上書きしない。
// 任意項目が解釈できない値の場合は既定値を使う。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	var missing []string
	for _, key := range requiredVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}

	baseURL := os.Getenv("BASE_URL")
	return &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		BaseURL:            baseURL,

		SessionMaxAge:          env("SESSION_MAX_AGE", 30*86400, positive(strconv.Atoi)),
		SessionCleanupInterval: env("SESSION_CLEANUP_INTERVAL", time.Hour, time.ParseDuration),

		RootDomain:     strings.ToLower(env("ROOT_DOMAIN", "localhost", asString)),
		ProtectedPaths: env("PROTECTED_PATHS", DefaultProtectedPaths, parseList),
		SignInPath:     env("SIGN_IN_PATH", "/sign-in", asString),

		TrialDays:       env("TRIAL_DAYS", 7, positive(strconv.Atoi)),
		RedisURL:        env("REDIS_URL", "", asString),
		ProfileCacheTTL: env("PROFILE_CACHE_TTL", 5*time.Minute, time.ParseDuration),

		ImageFetchTimeout: env("IMAGE_FETCH_TIMEOUT", 5*time.Second, time.ParseDuration),
		ImageMaxSize:      env("IMAGE_MAX_SIZE", int64(5<<20), positive(parseInt64)),

		RateLimitGeneral: env("RATE_LIMIT_GENERAL", 120, positive(strconv.Atoi)),
		RateLimitExport:  env("RATE_LIMIT_EXPORT", 10, positive(strconv.Atoi)),

		ServerPort: env("SERVER_PORT", "8080", asString),

		CookieSecure: strings.HasPrefix(baseURL, "https://"),
		CookieDomain: env("COOKIE_DOMAIN", "", asString),

		CORSAllowedOrigin: env("CORS_ALLOWED_ORIGIN", "http://localhost:3000", asString),
	}, nil
}

// env は環境変数をparseで解釈する。未設定または解釈に失敗した場合はdefを返す。
func env[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("ignoring invalid environment variable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return def
	}
	return v
}

func asString(s string) (string, error) { return s, nil }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

// positive は0以下の値をエラーとして扱うparseを返す。
func positive[T int | int64](parse func(string) (T, error)) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := parse(s)
		if err != nil {
			return 0, err
		}
		if v <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", v)
		}
		return v, nil
	}
}

// parseList はカンマ区切りの値を分割する。空要素は除き、1件も残らなければエラーとする。
func parseList(s string) ([]string, error) {
	var list []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return list, nil
}
