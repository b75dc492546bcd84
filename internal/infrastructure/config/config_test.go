package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "orders-storage", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.False(t, cfg.App.IsProduction())

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "orders_storage", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders-storage-reconciliation", cfg.Kafka.GroupID)
	assert.Equal(t, "inventory.holdings-record", cfg.Kafka.HoldingTopic)
	assert.Equal(t, "inventory.item", cfg.Kafka.ItemTopic)
	assert.Equal(t, "orders.audit-outbox", cfg.Kafka.AuditTopic)

	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.NotZero(t, cfg.Outbox.PollInterval)
	assert.NotZero(t, cfg.Batch.MaxAge)
	assert.NotZero(t, cfg.Consortium.CacheTTL)
	assert.Equal(t, "8081", cfg.HTTP.Port)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("missing database name", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Database.DBName = ""

		assert.Error(t, cfg.validate())
	})

	t.Run("missing brokers", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Kafka.Brokers = nil

		assert.Error(t, cfg.validate())
	})

	t.Run("non-positive outbox batch size", func(t *testing.T) {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Outbox.BatchSize = -1

		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "orders",
		Password: "s3cret",
		DBName:   "orders_storage",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=orders password=s3cret dbname=orders_storage sslmode=require",
		cfg.DSN(),
	)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}
