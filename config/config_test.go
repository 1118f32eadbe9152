package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Kafka.GroupID != "catalog-service" {
		t.Errorf("kafka group = %q, ожидалось catalog-service", cfg.Kafka.GroupID)
	}
	if cfg.Kafka.ImportTopic != "catalog-import-commands" {
		t.Errorf("import topic = %q, ожидалось catalog-import-commands", cfg.Kafka.ImportTopic)
	}
	if cfg.Kafka.DeliveriesTopic != "catalog-webhook-deliveries" {
		t.Errorf("deliveries topic = %q, ожидалось catalog-webhook-deliveries", cfg.Kafka.DeliveriesTopic)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		t.Error("список брокеров пуст")
	}

	if cfg.Import.BatchSize != 1000 {
		t.Errorf("batch size = %d, ожидалось 1000", cfg.Import.BatchSize)
	}
	if cfg.Import.ProgressEvery != 100 {
		t.Errorf("progress every = %d, ожидалось 100", cfg.Import.ProgressEvery)
	}
	if cfg.Import.StatusTTL != 24*time.Hour {
		t.Errorf("status ttl = %s, ожидалось 24h", cfg.Import.StatusTTL)
	}

	if cfg.Webhook.Timeout != 10*time.Second {
		t.Errorf("webhook timeout = %s, ожидалось 10s", cfg.Webhook.Timeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, ожидалось 8080", cfg.Server.Port)
	}
}
