package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("NORMALIZATION_POLICY", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	if cfg.ServerPort != "5000" {
		t.Fatalf("expected default port 5000, got %s", cfg.ServerPort)
	}
	if cfg.NormalizationPolicy != "default" {
		t.Fatalf("expected default policy, got %s", cfg.NormalizationPolicy)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8089")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("PREDICTION_CACHE_TTL", "30s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg := Load()
	if cfg.ServerPort != "8089" {
		t.Fatalf("expected port override, got %s", cfg.ServerPort)
	}
	if !cfg.RedisEnabled {
		t.Fatal("expected redis to be enabled")
	}
	if cfg.PredictionCacheTTL != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %s", cfg.PredictionCacheTTL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}
