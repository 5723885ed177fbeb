package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "LOCK_TIMEOUT", "KAFKA_BROKERS", "RECONCILE_CONCURRENCY", "MIGRATE_ON_START"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, 5*time.Second, cfg.Alerting.LockTimeout)
	assert.Equal(t, 8, cfg.Alerting.ReconcileConcurrency)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "stock-alert-events", cfg.Kafka.TopicAlertEvents)
	assert.Equal(t, "stock-commands", cfg.Kafka.TopicStockCommands)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/stock?sslmode=disable")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("RECONCILE_CONCURRENCY", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, 250*time.Millisecond, cfg.Alerting.LockTimeout)
	assert.Equal(t, 3, cfg.Alerting.ReconcileConcurrency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "soon")
	t.Setenv("RECONCILE_CONCURRENCY", "many")
	t.Setenv("MIGRATE_ON_START", "maybe")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.Alerting.LockTimeout)
	assert.Equal(t, 8, cfg.Alerting.ReconcileConcurrency)
	assert.False(t, cfg.Database.MigrateOnStart)
}
