package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob, read once at startup.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RedisAddr empty means caching is disabled and the no-op cache is
	// selected.
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	JWTSecret    string
	JWTExpiresIn time.Duration

	// KafkaBrokers empty disables order event publishing.
	KafkaBrokers string
	KafkaTopic   string

	JaegerEndpoint string
	ServiceName    string

	UploadDir     string
	MaxUploadSize int64
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durEnv("SHUTDOWN_TIMEOUT_SECONDS", 10),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "ecommerce"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      durEnv("CACHE_TTL_SECONDS", 300),

		JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiresIn: durEnv("JWT_EXPIRES_IN_SECONDS", int(7*24*time.Hour/time.Second)),

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_ORDER_TOPIC", "order_events"),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		ServiceName:    getEnv("SERVICE_NAME", "ecommerce-api"),

		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize: int64(intEnv("MAX_UPLOAD_SIZE_BYTES", 5*1024*1024)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durEnv(key string, defSeconds int) time.Duration {
	return time.Duration(intEnv(key, defSeconds)) * time.Second
}
