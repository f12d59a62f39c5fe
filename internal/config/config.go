package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Jobs     JobsConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
	// FilePath adds a rotated JSON log file next to stdout when set
	FilePath          string
	MaxSizeMB         int
	MaxBackups        int
	MaxAgeDays        int
	Compress          bool
}

type StoreConfig struct {
	Driver string
}

type PostgresConfig struct {
	URL           string
	MaxConns      int
	RunMigrations bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type AuthConfig struct {
	Secret  string
	JWKSURL string
	// Optional lets requests without a token through; their ledger writes are
	// recorded as unattributed
	Optional bool
}

type JobsConfig struct {
	Enabled                bool
	IntegritySweepInterval time.Duration
	ArchiveInterval        time.Duration
	ArchiveBatchSize       int
	// ArchiveSettle holds back ledger entries younger than this so that rows
	// whose ids were taken by a still-open transaction are not skipped. It must
	// exceed twice the longest ledger transaction.
	ArchiveSettle time.Duration
}

type CacheConfig struct {
	BinTTL time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

// Load reads the configuration from the environment. Call godotenv.Load first
// to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "development"),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", ""),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
			FilePath:          getEnv("LOGGER_FILE", ""),
			MaxSizeMB:         getEnvInt("LOGGER_FILE_MAX_SIZE_MB", 100),
			MaxBackups:        getEnvInt("LOGGER_FILE_MAX_BACKUPS", 5),
			MaxAgeDays:        getEnvInt("LOGGER_FILE_MAX_AGE_DAYS", 30),
			Compress:          getEnvBool("LOGGER_FILE_COMPRESS", true),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		},
		Postgres: PostgresConfig{
			URL:           getEnv("DATABASE_URL", ""),
			MaxConns:      getEnvInt("DATABASE_MAX_CONNS", 10),
			RunMigrations: getEnvBool("DATABASE_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MinIO: MinIOConfig{
			Enabled:   getEnvBool("MINIO_ENABLED", false),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			Bucket:    getEnv("MINIO_LEDGER_BUCKET", "binledger"),
		},
		Auth: AuthConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			JWKSURL:  getEnv("AUTH_JWKS_URL", ""),
			Optional: getEnvBool("AUTH_OPTIONAL", false),
		},
		Jobs: JobsConfig{
			Enabled:                getEnvBool("JOBS_ENABLED", true),
			IntegritySweepInterval: getEnvDuration("JOBS_INTEGRITY_SWEEP_INTERVAL", 15*time.Minute),
			ArchiveInterval:        getEnvDuration("JOBS_ARCHIVE_INTERVAL", time.Hour),
			ArchiveBatchSize:       getEnvInt("JOBS_ARCHIVE_BATCH_SIZE", 1000),
			ArchiveSettle:          getEnvDuration("JOBS_ARCHIVE_SETTLE", time.Minute),
		},
		Cache: CacheConfig{
			BinTTL: getEnvDuration("CACHE_BIN_TTL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Auth.Secret == "" && c.Auth.JWKSURL == "" && !c.Auth.Optional {
		return fmt.Errorf("JWT_SECRET or AUTH_JWKS_URL is required unless AUTH_OPTIONAL=true")
	}
	if c.Jobs.ArchiveBatchSize <= 0 {
		return fmt.Errorf("JOBS_ARCHIVE_BATCH_SIZE must be positive")
	}
	if c.Jobs.ArchiveSettle < 0 {
		return fmt.Errorf("JOBS_ARCHIVE_SETTLE cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
