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

// VaultMetaRepository persists the vault password check row. Initialization
// happens inside a transaction so exactly one writer wins.
type VaultMetaRepository struct {
	db *bun.DB
}

func NewVaultMetaRepository(db *bun.DB) *VaultMetaRepository {
	return &VaultMetaRepository{db: db}
}

var _ store.VaultMetaRepository = (*VaultMetaRepository)(nil)

func (r *VaultMetaRepository) Get(ctx context.Context) (*domain.VaultMeta, error) {
	meta := new(domain.VaultMeta)
	err := r.db.NewSelect().
		Model(meta).
		Order("created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return meta, nil
}

func (r *VaultMetaRepository) Init(ctx context.Context, meta *domain.VaultMeta) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().
			Model((*domain.VaultMeta)(nil)).
			Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return store.ErrAlreadyInitialized
		}
		meta.EnsureID()
		now := time.Now().UTC()
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = now
		}
		meta.UpdatedAt = now
		_, err = tx.NewInsert().Model(meta).Exec(ctx)
		return err
	})
}
