package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Alerting AlertingConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type DatabaseConfig struct {
	// URL empty selects the in-memory store
	URL            string
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	TopicAlertEvents   string
	TopicStockCommands string
	ConsumerGroup      string
}

type ObservabilityConfig struct {
	TracingEnabled bool
	JaegerEndpoint string
}

type AlertingConfig struct {
	LockTimeout          time.Duration
	ReconcileConcurrency int
	ReconcileOnStart     bool
	IdempotencyTTL       time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", ""),
			CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MigrateOnStart: getBool("MIGRATE_ON_START", false),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:            getBool("KAFKA_ENABLED", false),
			Brokers:            splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			TopicAlertEvents:   getEnv("KAFKA_TOPIC_ALERT_EVENTS", "stock-alert-events"),
			TopicStockCommands: getEnv("KAFKA_TOPIC_STOCK_COMMANDS", "stock-commands"),
			ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", "stock-alert-service-group"),
		},
		Observ: ObservabilityConfig{
			TracingEnabled: getBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Alerting: AlertingConfig{
			LockTimeout:          getDuration("LOCK_TIMEOUT", 5*time.Second),
			ReconcileConcurrency: getInt("RECONCILE_CONCURRENCY", 8),
			ReconcileOnStart:     getBool("RECONCILE_ON_START", false),
			IdempotencyTTL:       getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
