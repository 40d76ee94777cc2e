package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.True(t, cfg.AutoMigrate)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "transfer_completed", cfg.KafkaTopic)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "money_test")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "money_test", cfg.DBName)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     "5433",
		DBUser:     "postgres",
		DBPassword: "secret",
		DBName:     "money",
		DBSSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5433 user=postgres password=secret dbname=money sslmode=disable",
		cfg.GetDBConnectionString())
}

func TestGetEnvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("AUTO_MIGRATE", "not-a-bool")

	cfg := Load()
	assert.True(t, cfg.AutoMigrate)
}
