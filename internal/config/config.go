package config

import (
	"os"
	"strconv"
	"time"

	"veritas/internal/domain"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey string

	TrustFeedURL      string
	TrustSeedPath     string
	TrustRefreshHours int

	RevocationMode string

	ChunkSizeBytes  int64
	MaxContentBytes int64
	MaxChainLength  int

	PolicyBundlePath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		TrustFeedURL:           os.Getenv("TRUST_FEED_URL"),
		TrustSeedPath:          os.Getenv("TRUST_SEED_PATH"),
		TrustRefreshHours:      envIntDefault("TRUST_REFRESH_HOURS", 24),
		RevocationMode:         envDefault("REVOCATION_MODE", string(domain.RevocationFailOpen)),
		ChunkSizeBytes:         envInt64Default("CHUNK_SIZE_BYTES", 1<<20),
		MaxContentBytes:        envInt64Default("MAX_CONTENT_BYTES", 2<<30),
		MaxChainLength:         envIntDefault("MAX_CHAIN_LENGTH", 8),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) TrustRefreshInterval() time.Duration {
	if c.TrustRefreshHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TrustRefreshHours) * time.Hour
}

// Revocation returns the configured mode, falling back to fail-open for
// unrecognized values so a typo never silently blocks every chain.
func (c Config) Revocation() domain.RevocationMode {
	if c.RevocationMode == string(domain.RevocationFailClosed) {
		return domain.RevocationFailClosed
	}
	return domain.RevocationFailOpen
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envInt64Default(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
