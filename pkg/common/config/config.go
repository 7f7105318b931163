package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// HTTP edge
	CORSAllowedOrigin string
	RateLimitRPS      int
	RateLimitBurst    int

	// Model
	ModelPath           string
	SchemaPath          string
	NormalizationPolicy string
	RedactionRulesPath  string

	// Database
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisEnabled       bool
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	PredictionCacheTTL time.Duration

	// Kafka
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaPredictionTopic string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set take precedence.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "5000"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 15*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024)),

		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		RateLimitRPS:      getIntEnv("RATE_LIMIT_RPS", 0),
		RateLimitBurst:    getIntEnv("RATE_LIMIT_BURST", 100),

		ModelPath:           getEnv("MODEL_PATH", "model.json"),
		SchemaPath:          getEnv("SCHEMA_PATH", ""),
		NormalizationPolicy: getEnv("NORMALIZATION_POLICY", "default"),
		RedactionRulesPath:  getEnv("REDACTION_RULES_PATH", ""),

		PostgresEnabled:  getBoolEnv("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "urisense"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "urisense"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisEnabled:       getBoolEnv("REDIS_ENABLED", false),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getIntEnv("REDIS_DB", 0),
		PredictionCacheTTL: getDuration("PREDICTION_CACHE_TTL", 10*time.Minute),

		KafkaEnabled:         getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:         getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaPredictionTopic: getEnv("KAFKA_PREDICTION_TOPIC", "urinalysis.predictions"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
