package badgerrepo

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
)

// VaultMetaRepository stores the password check material under a fixed key.
type VaultMetaRepository struct {
	store *Store
}

func NewVaultMetaRepository(s *Store) *VaultMetaRepository {
	return &VaultMetaRepository{store: s}
}

var _ store.VaultMetaRepository = (*VaultMetaRepository)(nil)

func (r *VaultMetaRepository) Get(ctx context.Context) (*domain.VaultMeta, error) {
	var meta domain.VaultMeta
	err := r.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, &meta)
		})
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}
	return &meta, nil
}

func (r *VaultMetaRepository) Init(ctx context.Context, meta *domain.VaultMeta) error {
	if meta == nil {
		return store.ErrNotFound
	}
	err := r.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(metaKey))
		switch {
		case err == nil:
			return store.ErrAlreadyInitialized
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}
		meta.EnsureID()
		now := time.Now().UTC()
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = now
		}
		meta.UpdatedAt = now
		data, err := encode(meta)
		if err != nil {
			return err
		}
		return txn.Set([]byte(metaKey), data)
	})
	return mapBadgerError(err)
}
