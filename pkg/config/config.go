package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Storage driver identifiers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// DefaultRetentionPeriod protects archived records for thirty days unless
// configured otherwise.
const DefaultRetentionPeriod = 720 * time.Hour

// Config captures module-level configuration knobs. Hosts hand these to the
// module constructor; runtime changes to retention go through the settings
// API instead.
type Config struct {
	Retention RetentionConfig `mapstructure:"retention" json:"retention"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Crypto    CryptoConfig    `mapstructure:"crypto" json:"crypto"`
	Sweep     SweepConfig     `mapstructure:"sweep" json:"sweep"`
}

// RetentionConfig seeds the store-wide retention policy. A zero period
// selects the default; immediate eligibility is configured at runtime
// through the settings API, where zero is honored as written.
type RetentionConfig struct {
	Period     time.Duration `mapstructure:"period" json:"period"`
	AutoRemove bool          `mapstructure:"auto_remove" json:"auto_remove"`
}

// StorageConfig selects the persistence backend. DSN applies to sqlite;
// Path applies to badger, where an empty path opens an in-memory store.
type StorageConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
	Path   string `mapstructure:"path" json:"path"`
}

// CryptoConfig tunes the Argon2id derivation. Zero fields fall back to the
// library defaults.
type CryptoConfig struct {
	Time      uint32 `mapstructure:"time" json:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib" json:"memory_kib"`
	Threads   uint8  `mapstructure:"threads" json:"threads"`
	SaltSize  int    `mapstructure:"salt_size" json:"salt_size"`
	KeySize   int    `mapstructure:"key_size" json:"key_size"`
}

// SweepConfig carries default knobs for host-driven sweep runs.
type SweepConfig struct {
	DryRun bool `mapstructure:"dry_run" json:"dry_run"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Retention: RetentionConfig{
			Period:     DefaultRetentionPeriod,
			AutoRemove: false,
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
		},
		Crypto: CryptoConfig{
			Time:      3,
			MemoryKiB: 64 * 1024,
			Threads:   4,
			SaltSize:  16,
			KeySize:   32,
		},
		Sweep: SweepConfig{
			DryRun: false,
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Retention.Period < 0 {
		return fmt.Errorf("retention.period must be >= 0")
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverBadger:
	default:
		return fmt.Errorf("storage.driver must be one of %q, %q, %q", DriverMemory, DriverSQLite, DriverBadger)
	}
	if c.Crypto.Time == 0 {
		return fmt.Errorf("crypto.time must be > 0")
	}
	if c.Crypto.MemoryKiB < 8*1024 {
		return fmt.Errorf("crypto.memory_kib must be >= %d", 8*1024)
	}
	if c.Crypto.Threads == 0 {
		return fmt.Errorf("crypto.threads must be > 0")
	}
	if c.Crypto.SaltSize < 16 {
		return fmt.Errorf("crypto.salt_size must be >= 16")
	}
	if c.Crypto.KeySize != 32 {
		return fmt.Errorf("crypto.key_size must be 32")
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// While cfgx.Build still returns zero values, we fallback to a lightweight
// decoder to keep smoke tests meaningful. Once cfgx is fully implemented we
// can drop the fallback.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Retention.Period == 0 {
		c.Retention.Period = defaults.Retention.Period
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Crypto.Time == 0 {
		c.Crypto.Time = defaults.Crypto.Time
	}
	if c.Crypto.MemoryKiB == 0 {
		c.Crypto.MemoryKiB = defaults.Crypto.MemoryKiB
	}
	if c.Crypto.Threads == 0 {
		c.Crypto.Threads = defaults.Crypto.Threads
	}
	if c.Crypto.SaltSize == 0 {
		c.Crypto.SaltSize = defaults.Crypto.SaltSize
	}
	if c.Crypto.KeySize == 0 {
		c.Crypto.KeySize = defaults.Crypto.KeySize
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
