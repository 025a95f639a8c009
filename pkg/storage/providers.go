package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	badgerrepo "github.com/goliatone/go-configvault/internal/storage/badger"
	bunrepo "github.com/goliatone/go-configvault/internal/storage/bun"
	"github.com/goliatone/go-configvault/internal/storage/memory"
	"github.com/goliatone/go-configvault/pkg/config"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// MetricsCollector enables downstream observers to record repo timings.
type MetricsCollector interface {
	Record(operation string, labels map[string]string)
}

// Providers exposes the repositories the engine services need.
type Providers struct {
	Records     store.RecordRepository
	Settings    store.SettingsRepository
	Meta        store.VaultMetaRepository
	Transaction store.TransactionManager
	Metrics     MetricsCollector
}

type Option func(*Providers)

// WithMetricsCollector registers a metrics collector returned alongside repos.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(p *Providers) {
		p.Metrics = collector
	}
}

// NewMemoryProviders returns repositories backed by in-memory maps.
func NewMemoryProviders(opts ...Option) Providers {
	providers := Providers{
		Records:     memory.NewRecordRepository(),
		Settings:    memory.NewSettingsRepository(),
		Meta:        memory.NewVaultMetaRepository(),
		Transaction: &store.NopTransactionManager{},
	}
	for _, opt := range opts {
		opt(&providers)
	}
	return providers
}

// NewBunProviders wires Bun-backed repositories using go-repository-bun.
// The caller is responsible for creating the *bun.DB instance (potentially
// via OpenSQLite or go-persistence-bun) and managing its lifecycle.
func NewBunProviders(db *bun.DB, opts ...Option) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(
		(*domain.ConfigRecord)(nil),
		(*domain.RetentionSettings)(nil),
		(*domain.VaultMeta)(nil),
	)

	txManager := &bunTxManager{db: db}

	providers := Providers{
		Records:     bunrepo.NewRecordRepository(db),
		Settings:    bunrepo.NewSettingsRepository(db),
		Meta:        bunrepo.NewVaultMetaRepository(db),
		Transaction: txManager,
	}

	for _, opt := range opts {
		opt(&providers)
	}
	return providers
}

// NewBadgerProviders wires repositories around an open Badger store. The
// caller owns the store and closes it when done.
func NewBadgerProviders(s *badgerrepo.Store, opts ...Option) Providers {
	if s == nil {
		panic("storage: badger store is required")
	}
	providers := Providers{
		Records:     badgerrepo.NewRecordRepository(s),
		Settings:    badgerrepo.NewSettingsRepository(s),
		Meta:        badgerrepo.NewVaultMetaRepository(s),
		Transaction: &store.NopTransactionManager{},
	}
	for _, opt := range opts {
		opt(&providers)
	}
	return providers
}

// FromConfig opens the backend named by the configuration and returns
// providers plus a close function for the underlying handle.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (Providers, func() error, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryProviders(), func() error { return nil }, nil
	case config.DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return Providers{}, nil, err
		}
		return NewBunProviders(db), db.Close, nil
	case config.DriverBadger:
		s, err := OpenBadger(cfg.Path)
		if err != nil {
			return Providers{}, nil, err
		}
		return NewBadgerProviders(s), s.Close, nil
	default:
		return Providers{}, nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// OpenSQLite opens a sqlite-backed bun DB and ensures the vault schema. An
// empty DSN selects a shared in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: enable sqlite foreign keys: %w", err)
	}

	if err := bunrepo.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenBadger opens the key-value store at path. An empty path keeps
// everything in memory, which suits tests and ephemeral embeddings.
func OpenBadger(path string) (*badgerrepo.Store, error) {
	if strings.TrimSpace(path) == "" {
		return badgerrepo.OpenInMemory()
	}
	return badgerrepo.Open(path)
}

func ensureSQLiteDir(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

type bunTxManager struct {
	db *bun.DB
}

func (m *bunTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx)
	})
}
