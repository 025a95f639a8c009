package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
)

// VaultMetaRepository keeps the vault password check material in memory.
type VaultMetaRepository struct {
	mu   sync.RWMutex
	meta *domain.VaultMeta
}

func NewVaultMetaRepository() *VaultMetaRepository {
	return &VaultMetaRepository{}
}

var _ store.VaultMetaRepository = (*VaultMetaRepository)(nil)

func (r *VaultMetaRepository) Get(ctx context.Context) (*domain.VaultMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.meta == nil {
		return nil, store.ErrNotFound
	}
	out := *r.meta
	out.Salt = append([]byte(nil), r.meta.Salt...)
	out.Check = append([]byte(nil), r.meta.Check...)
	return &out, nil
}

func (r *VaultMetaRepository) Init(ctx context.Context, meta *domain.VaultMeta) error {
	if meta == nil {
		return store.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.meta != nil {
		return store.ErrAlreadyInitialized
	}
	meta.EnsureID()
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	stored := *meta
	stored.Salt = append([]byte(nil), meta.Salt...)
	stored.Check = append([]byte(nil), meta.Check...)
	r.meta = &stored
	return nil
}
