package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	DBPath   string `yaml:"db_path"`
	DBDriver string `yaml:"db_driver"`

	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	CacheRecordTTL time.Duration `yaml:"cache_record_ttl"`
	CacheListTTL   time.Duration `yaml:"cache_list_ttl"`

	GRPCPort              int  `yaml:"grpc_port"`
	GRPCReflectionEnabled bool `yaml:"grpc_reflection_enabled"`
	HTTPPort              int  `yaml:"http_port"`

	LLM   LLMConfig   `yaml:"llm"`
	ONNX  ONNXConfig  `yaml:"onnx"`
	Kafka KafkaConfig `yaml:"kafka"`

	BatchConcurrency int      `yaml:"batch_concurrency"`
	ProductCatalog   []string `yaml:"product_catalog"`
}

// LLMConfig configures the OpenAI-compatible endpoint. An empty APIKey
// disables LLM synthesis.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ONNXConfig selects the transformer sentiment model. An empty ModelPath
// selects the lexicon analyzer.
type ONNXConfig struct {
	ModelPath   string `yaml:"model_path"`
	VocabPath   string `yaml:"vocab_path"`
	LibraryPath string `yaml:"library_path"`
	Threads     int    `yaml:"threads"`
}

// KafkaConfig enables publishing of triaged tickets when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func defaults() *Config {
	return &Config{
		AppEnv:           "development",
		LogLevel:         "info",
		DBPath:           "./data/tickets.db",
		DBDriver:         "sqlite3",
		CacheRecordTTL:   10 * time.Minute,
		CacheListTTL:     30 * time.Second,
		GRPCPort:         50051,
		HTTPPort:         8000,
		LLM:              LLMConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", Timeout: 30 * time.Second},
		ONNX:             ONNXConfig{Threads: 2},
		Kafka:            KafkaConfig{Topic: "tickets.triaged"},
		BatchConcurrency: 5,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only. Malformed
// values keep their defaults.
func LoadFromEnv() *Config {
	cfg := defaults()
	_ = cfg.applyEnv()
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields whose variables are set. It applies every valid
// value and reports the first malformed one.
func (c *Config) applyEnv() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	envString("APP_ENV", &c.AppEnv)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("DB_PATH", &c.DBPath)
	envString("DB_DRIVER", &c.DBDriver)
	envString("REDIS_ADDR", &c.RedisAddr)
	envString("REDIS_PASSWORD", &c.RedisPassword)
	keep(envInt("REDIS_DB", &c.RedisDB))
	keep(envDuration("CACHE_RECORD_TTL", &c.CacheRecordTTL))
	keep(envDuration("CACHE_LIST_TTL", &c.CacheListTTL))
	keep(envInt("GRPC_PORT", &c.GRPCPort))
	keep(envBool("GRPC_REFLECTION_ENABLED", &c.GRPCReflectionEnabled))
	keep(envInt("HTTP_PORT", &c.HTTPPort))

	envString("OPENAI_API_KEY", &c.LLM.APIKey)
	envString("LLM_BASE_URL", &c.LLM.BaseURL)
	envString("LLM_MODEL", &c.LLM.Model)
	keep(envDuration("LLM_TIMEOUT", &c.LLM.Timeout))

	envString("ONNX_MODEL_PATH", &c.ONNX.ModelPath)
	envString("ONNX_VOCAB_PATH", &c.ONNX.VocabPath)
	envString("ONNX_LIBRARY_PATH", &c.ONNX.LibraryPath)
	keep(envInt("ONNX_THREADS", &c.ONNX.Threads))

	envList("KAFKA_BROKERS", &c.Kafka.Brokers)
	envString("KAFKA_TOPIC", &c.Kafka.Topic)

	keep(envInt("BATCH_CONCURRENCY", &c.BatchConcurrency))
	envList("PRODUCT_CATALOG", &c.ProductCatalog)

	return firstErr
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.AppEnv == "production" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	return zc.Build()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envString(key string, dst *string) {
	*dst = getEnv(key, *dst)
}

func envInt(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// Bare numbers are seconds.
		secs, nerr := strconv.ParseFloat(raw, 64)
		if nerr != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	*dst = d
	return nil
}

// envList reads a comma separated list.
func envList(key string, dst *[]string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
