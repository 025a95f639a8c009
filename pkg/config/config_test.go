package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Retention.Period != DefaultRetentionPeriod {
		t.Fatalf("expected period %s, got %s", DefaultRetentionPeriod, cfg.Retention.Period)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Crypto.KeySize != 32 {
		t.Fatalf("expected key size 32, got %d", cfg.Crypto.KeySize)
	}
}

func TestLoadFromMap(t *testing.T) {
	input := map[string]any{
		"retention": map[string]any{
			"period":      72 * time.Hour,
			"auto_remove": true,
		},
		"storage": map[string]any{
			"driver": "sqlite",
			"dsn":    "file:vault.db",
		},
	}

	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Retention.Period != 72*time.Hour {
		t.Fatalf("expected period 72h, got %s", cfg.Retention.Period)
	}
	if !cfg.Retention.AutoRemove {
		t.Fatalf("expected auto remove enabled")
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != "file:vault.db" {
		t.Fatalf("expected dsn, got %s", cfg.Storage.DSN)
	}
	if cfg.Crypto.Time == 0 {
		t.Fatalf("expected crypto defaults to fill in")
	}
}

func TestLoadFromStruct(t *testing.T) {
	input := Config{
		Retention: RetentionConfig{Period: 24 * time.Hour},
		Storage:   StorageConfig{Driver: DriverBadger, Path: "/tmp/vault"},
	}

	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Retention.Period != 24*time.Hour {
		t.Fatalf("expected period 24h, got %s", cfg.Retention.Period)
	}
	if cfg.Storage.Driver != DriverBadger {
		t.Fatalf("expected badger driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "/tmp/vault" {
		t.Fatalf("expected path, got %s", cfg.Storage.Path)
	}
	if cfg.Crypto.MemoryKiB != 64*1024 {
		t.Fatalf("expected memory default, got %d", cfg.Crypto.MemoryKiB)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(map[string]any{})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Retention.Period != DefaultRetentionPeriod {
		t.Fatalf("expected default period, got %s", cfg.Retention.Period)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected default driver, got %s", cfg.Storage.Driver)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative period", func(c *Config) { c.Retention.Period = -time.Hour }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "etcd" }},
		{"zero kdf time", func(c *Config) { c.Crypto.Time = 0 }},
		{"tiny kdf memory", func(c *Config) { c.Crypto.MemoryKiB = 64 }},
		{"zero threads", func(c *Config) { c.Crypto.Threads = 0 }},
		{"short salt", func(c *Config) { c.Crypto.SaltSize = 4 }},
		{"wrong key size", func(c *Config) { c.Crypto.KeySize = 64 }},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
