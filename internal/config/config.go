package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// セッション上限超過時のポリシー。
const (
	SessionOverflowEvictOldest = "evict-oldest"
	SessionOverflowRejectNew   = "reject-new"
)

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
	SessionSecret         string
	SessionMaxAge         int
	SessionMaxPerUser     int
	SessionOverflowPolicy string

	// Upstream (Open-Meteo / Places)
	UpstreamTimeout  time.Duration
	OpenMeteoAPIURL  string
	PlacesAPIBaseURL string
	GoogleMapsAPIKey string

	// Weather defaults
	WeatherDefaultLatitude  float64
	WeatherDefaultLongitude float64
	WeatherTimezone         string

	// Sync
	SyncAPIInterval   time.Duration
	SyncBatchInterval time.Duration
	SyncStaleDays     int

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
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

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
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
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionMaxPerUser = getEnvInt("SESSION_MAX_PER_USER", 3)
	cfg.SessionOverflowPolicy = getEnvString("SESSION_OVERFLOW_POLICY", SessionOverflowEvictOldest)
	if cfg.SessionOverflowPolicy != SessionOverflowEvictOldest && cfg.SessionOverflowPolicy != SessionOverflowRejectNew {
		return nil, fmt.Errorf("invalid SESSION_OVERFLOW_POLICY: %q", cfg.SessionOverflowPolicy)
	}

	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.OpenMeteoAPIURL = getEnvString("OPENMETEO_API_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.PlacesAPIBaseURL = getEnvString("PLACES_API_BASE_URL", "https://maps.googleapis.com/maps/api/place")
	cfg.GoogleMapsAPIKey = getEnvString("GOOGLE_MAPS_API_KEY", "")

	cfg.WeatherDefaultLatitude = getEnvFloat("WEATHER_DEFAULT_LATITUDE", 5.4164)
	cfg.WeatherDefaultLongitude = getEnvFloat("WEATHER_DEFAULT_LONGITUDE", 100.3327)
	cfg.WeatherTimezone = getEnvString("WEATHER_TIMEZONE", "Asia/Kuala_Lumpur")

	cfg.SyncAPIInterval = getEnvDuration("SYNC_API_INTERVAL", 200*time.Millisecond)
	cfg.SyncBatchInterval = getEnvDuration("SYNC_BATCH_INTERVAL", 6*time.Hour)
	cfg.SyncStaleDays = getEnvInt("SYNC_STALE_DAYS", 7)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
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
