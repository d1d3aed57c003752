package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "github.com/alangunning/nomulus/pkg/platform/strings"
)

// Store backends selectable with STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	AdminToken    string
	CORSOrigins   []string
	JWTIssuer     string
	JWTAudience   string
	SessionTTL    time.Duration
	StoreBackend  string
	Database      DatabaseConfig
	Redis         RedisConfig
	Transfer      TransferConfig
	RateLimit     RateLimitConfig
	Log           LogConfig
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	URL          string
	Driver       string // "pgx" or "postgres" (lib/pq)
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TransferConfig bounds the expiration derived for a transfer.
type TransferConfig struct {
	MaxExtensionYears        int
	RegistrationCeilingYears int
}

// RateLimitConfig configures the per-registrar limiter. RPS of zero disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numbers fall back to defaults; Validate reports what is unusable.
func FromEnv() Server {
	return Server{
		Addr:          getString("NOMULUS_ADDR", ":8080"),
		Environment:   getString("NOMULUS_ENV", "development"),
		JWTSigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminToken:    os.Getenv("ADMIN_API_TOKEN"),
		CORSOrigins:   pstrings.SplitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		JWTIssuer:     getString("JWT_ISSUER", "nomulus"),
		JWTAudience:   getString("JWT_AUDIENCE", "epp"),
		SessionTTL:    getDuration("SESSION_TTL", time.Hour),
		StoreBackend:  strings.ToLower(getString("STORE_BACKEND", StoreMemory)),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Driver:       getString("DB_DRIVER", "pgx"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Transfer: TransferConfig{
			MaxExtensionYears:        getInt("TRANSFER_MAX_EXTENSION_YEARS", 10),
			RegistrationCeilingYears: getInt("REGISTRATION_CEILING_YEARS", 0),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloat("RATE_LIMIT_RPS", 0),
			Burst: getInt("RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getString("LOG_LEVEL", "info"),
			Format: getString("LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects combinations the server cannot start with.
func (s Server) Validate() error {
	switch s.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if s.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		if s.Database.Driver != "pgx" && s.Database.Driver != "postgres" {
			return fmt.Errorf("unsupported DB_DRIVER %q", s.Database.Driver)
		}
	case StoreRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", s.StoreBackend)
	}
	if s.Transfer.MaxExtensionYears < 0 || s.Transfer.RegistrationCeilingYears < 0 {
		return fmt.Errorf("transfer year limits cannot be negative")
	}
	if s.RateLimit.RPS < 0 || s.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit settings cannot be negative")
	}
	if s.Environment == "production" && s.JWTSigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
