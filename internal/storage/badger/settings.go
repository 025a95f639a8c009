package badgerrepo

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
)

// SettingsRepository stores the retention settings under a fixed key.
type SettingsRepository struct {
	store *Store
}

func NewSettingsRepository(s *Store) *SettingsRepository {
	return &SettingsRepository{store: s}
}

var _ store.SettingsRepository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context) (*domain.RetentionSettings, error) {
	var settings domain.RetentionSettings
	err := r.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, &settings)
		})
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}
	return &settings, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings *domain.RetentionSettings) error {
	if settings == nil {
		return store.ErrNotFound
	}
	err := r.store.db.Update(func(txn *badger.Txn) error {
		var current domain.RetentionSettings
		item, err := txn.Get([]byte(settingsKey))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error { return decode(val, &current) }); err != nil {
				return err
			}
			settings.ID = current.ID
			settings.CreatedAt = current.CreatedAt
		case errors.Is(err, badger.ErrKeyNotFound):
			settings.EnsureID()
			settings.CreatedAt = time.Now().UTC()
		default:
			return err
		}
		settings.UpdatedAt = time.Now().UTC()
		data, err := encode(settings)
		if err != nil {
			return err
		}
		return txn.Set([]byte(settingsKey), data)
	})
	return mapBadgerError(err)
}
