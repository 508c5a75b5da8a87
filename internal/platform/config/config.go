// Package config assembles runtime configuration from an optional YAML file
// and environment variables, so main stays lean. Environment variables win
// over the file; the file path itself comes from VERIGRANT_CONFIG.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string `yaml:"addr"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
}

// Postgres configures the durable treasury store. An empty DSN selects the
// in-memory store.
type Postgres struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the shared idempotency cache. An empty URL disables
// Redis and falls back to the in-process cache.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Kafka configures the audit event sink. No brokers means audit events stay
// in the in-memory store only.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Worker configures the background yield claimer.
type Worker struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server      `yaml:"server"`
	Postgres Postgres    `yaml:"postgres"`
	Redis    RedisConfig `yaml:"redis"`
	Kafka    Kafka       `yaml:"kafka"`
	Worker   Worker      `yaml:"worker"`
	LogLevel string      `yaml:"log_level"`

	// IdempotencyTTL bounds replay of cached mutation responses.
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

func defaults() Config {
	return Config{
		Server: Server{
			Addr:          ":8080",
			JWTSigningKey: "dev-secret-key-change-in-production",
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Worker:         Worker{Enabled: true},
		LogLevel:       "info",
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("VERIGRANT_CONFIG"); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(payload, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	overrideString(&cfg.Server.Addr, "VERIGRANT_ADDR")
	overrideString(&cfg.Server.JWTSigningKey, "VERIGRANT_JWT_SIGNING_KEY")
	overrideString(&cfg.Postgres.DSN, "VERIGRANT_POSTGRES_DSN")
	overrideString(&cfg.Redis.URL, "VERIGRANT_REDIS_URL")
	overrideString(&cfg.Kafka.Topic, "VERIGRANT_KAFKA_TOPIC")
	overrideString(&cfg.LogLevel, "VERIGRANT_LOG_LEVEL")
	if brokers := os.Getenv("VERIGRANT_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if v := os.Getenv("VERIGRANT_WORKER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse VERIGRANT_WORKER_ENABLED: %w", err)
		}
		cfg.Worker.Enabled = enabled
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
