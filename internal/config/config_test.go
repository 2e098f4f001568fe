package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "DB_DRIVER", "GRPC_PORT", "HTTP_PORT", "LLM_TIMEOUT", "LLM_MODEL", "OPENAI_API_KEY", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}
	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("GRPC_REFLECTION_ENABLED", "true")
	t.Setenv("LLM_TIMEOUT", "45")
	t.Setenv("CACHE_LIST_TTL", "1m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := LoadFromEnv()
	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.True(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, time.Minute, cfg.CacheListTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoadFromEnv_MalformedKeepsDefault(t *testing.T) {
	t.Setenv("GRPC_PORT", "not-a-port")
	cfg := LoadFromEnv()
	assert.Equal(t, 50051, cfg.GRPCPort)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_env: production
http_port: 9000
cache_record_ttl: 5m
llm:
  model: gpt-4o
  timeout: 10s
kafka:
  brokers: [broker:9092]
  topic: triage.out
product_catalog: [Widget-X, CloudSync Pro]
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, 9100, cfg.HTTPPort, "env wins over file")
	assert.Equal(t, 5*time.Minute, cfg.CacheRecordTTL)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL, "unset file keys keep defaults")
	assert.Equal(t, []string{"broker:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"Widget-X", "CloudSync Pro"}, cfg.ProductCatalog)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("BATCH_CONCURRENCY", "many")
		_, err := Load()
		assert.ErrorContains(t, err, "BATCH_CONCURRENCY")
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{AppEnv: "production", LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger(&Config{LogLevel: "chatty"})
	assert.Error(t, err)
}
