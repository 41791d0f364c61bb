// Package config reads the worker configuration from the environment. A
// .env file in the working directory is loaded first when present, which
// is how development setups pass settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN string

	QueueKind     string // "redis" or "sqs"
	RedisAddr     string
	RedisPassword string
	RedisKey      string
	SQSQueueURL   string

	SandboxKind string // "isolate" or "direct"
	IsolatePath string

	NatsURL     string // empty disables status events
	NatsSubject string

	WorkRoot     string
	ArtifactRoot string // empty disables output archiving
	LanguageFile string // optional TOML with extra language profiles

	Workers    int
	HealthAddr string

	LogLevel  string
	LogFormat string // "text" or "json"
}

// Read loads the configuration and validates the settings the worker
// cannot start without.
func Read() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		QueueKind:     getenv("QUEUE_KIND", "redis"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisKey:      getenv("REDIS_KEY", "submissions"),
		SQSQueueURL:   os.Getenv("SQS_QUEUE_URL"),
		SandboxKind:   getenv("SANDBOX_KIND", "isolate"),
		IsolatePath:   getenv("ISOLATE_PATH", "isolate"),
		NatsURL:       os.Getenv("NATS_URL"),
		NatsSubject:   getenv("NATS_SUBJECT", "judge.submissions"),
		WorkRoot:      os.Getenv("WORK_ROOT"),
		ArtifactRoot:  os.Getenv("ARTIFACT_ROOT"),
		LanguageFile:  os.Getenv("LANGUAGE_FILE"),
		HealthAddr:    getenv("HEALTH_ADDR", ":8787"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "text"),
	}

	workers, err := strconv.Atoi(getenv("WORKERS", "2"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("WORKERS must be a positive integer")
	}
	cfg.Workers = workers

	cfg.PostgresDSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("DB_HOST", "localhost"),
		getenv("DB_PORT", "5432"),
		getenv("DB_USER", "judge"),
		os.Getenv("DB_PASS"),
		getenv("DB_NAME", "judge"),
		getenv("DB_SSLMODE", "disable"),
	)

	switch cfg.QueueKind {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis queue")
		}
	case "sqs":
		if cfg.SQSQueueURL == "" {
			return nil, fmt.Errorf("SQS_QUEUE_URL is required for the sqs queue")
		}
	default:
		return nil, fmt.Errorf("unknown QUEUE_KIND: %q", cfg.QueueKind)
	}
	if cfg.SandboxKind != "isolate" && cfg.SandboxKind != "direct" {
		return nil, fmt.Errorf("unknown SANDBOX_KIND: %q", cfg.SandboxKind)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
