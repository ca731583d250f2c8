package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	JWTTTL     time.Duration
	ServerPort string

	CORSOrigins string

	PaymentLatency time.Duration
	PaymentTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	RedisURL       string
	CourseCacheTTL time.Duration

	PendingReportSchedule string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", "postgres"),
		DBName:                getEnv("DB_NAME", "storefront"),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		JWTSecret:             getEnv("JWT_SECRET", "secret"),
		JWTTTL:                getDuration("JWT_TTL", 72*time.Hour),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		CORSOrigins:           getEnv("CORS_ORIGINS", "*"),
		PaymentLatency:        getDuration("PAYMENT_LATENCY", 2*time.Second),
		PaymentTimeout:        getDuration("PAYMENT_TIMEOUT", 10*time.Second),
		KafkaBrokers:          splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "storefront.enrollments"),
		RedisURL:              getEnv("REDIS_URL", ""),
		CourseCacheTTL:        getDuration("COURSE_CACHE_TTL", 10*time.Minute),
		PendingReportSchedule: getEnv("PENDING_REPORT_SCHEDULE", "@every 1m"),
	}

	if cfg.PaymentTimeout <= cfg.PaymentLatency {
		return nil, fmt.Errorf("PAYMENT_TIMEOUT (%s) must exceed PAYMENT_LATENCY (%s)", cfg.PaymentTimeout, cfg.PaymentLatency)
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
