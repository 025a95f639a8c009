package bunrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/uptrace/bun"
)

// SettingsRepository persists the store-wide retention settings as a single
// row.
type SettingsRepository struct {
	db *bun.DB
}

func NewSettingsRepository(db *bun.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

var _ store.SettingsRepository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context) (*domain.RetentionSettings, error) {
	settings := new(domain.RetentionSettings)
	err := r.db.NewSelect().
		Model(settings).
		Order("created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return settings, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings *domain.RetentionSettings) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := new(domain.RetentionSettings)
		err := tx.NewSelect().
			Model(current).
			Order("created_at ASC").
			Limit(1).
			Scan(ctx)
		now := time.Now().UTC()
		switch {
		case err == nil:
			settings.ID = current.ID
			settings.CreatedAt = current.CreatedAt
			settings.UpdatedAt = now
			_, err = tx.NewUpdate().
				Model(settings).
				Where("id = ?", settings.ID).
				Exec(ctx)
			return err
		case errors.Is(err, sql.ErrNoRows):
			settings.EnsureID()
			settings.CreatedAt = now
			settings.UpdatedAt = now
			_, err = tx.NewInsert().Model(settings).Exec(ctx)
			return err
		default:
			return err
		}
	})
}
