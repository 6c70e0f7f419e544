package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port      string
	GinMode   string
	LogFile   string
	LogLevel  string
	LogStdout bool

	// StorageDriver is sqlite, postgres or redis.
	StorageDriver string
	SQLitePath    string
	Postgres      PostgresConfig
	RedisAddr     string
	RedisPrefix   string

	// ReceiptsDatabaseURL points at the remote receipt history. Empty disables it.
	ReceiptsDatabaseURL string

	JWTSecret      string
	JWTTTL         time.Duration
	PersistTimeout time.Duration
	AllowedOrigins []string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		LogFile:       getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:      getEnv("LOG_LEVEL", "debug"),
		LogStdout:     getEnvBool("LOG_STDOUT", false),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
		SQLitePath:    getEnv("SQLITE_PATH", "krypto.db"),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "krypto_store"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPrefix:         getEnv("REDIS_PREFIX", "krypto:"),
		ReceiptsDatabaseURL: getEnv("RECEIPTS_DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTTTL:              getEnvDuration("JWT_TTL", 72*time.Hour),
		PersistTimeout:      getEnvDuration("PERSIST_TIMEOUT", 5*time.Second),
		AllowedOrigins:      splitList(getEnv("CORS_ORIGINS", "")),
	}
	if cfg.JWTSecret == "" {
		logrus.Warn("JWT_SECRET not set, using an insecure development secret")
		cfg.JWTSecret = "supersecret"
	}
	return cfg
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid boolean %q, using %v", v, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logrus.WithField("key", key).Warnf("invalid duration %q, using %s", v, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
