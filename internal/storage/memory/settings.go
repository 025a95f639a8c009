package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
)

// SettingsRepository keeps the single retention settings row in memory.
type SettingsRepository struct {
	mu       sync.RWMutex
	settings *domain.RetentionSettings
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

var _ store.SettingsRepository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context) (*domain.RetentionSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return nil, store.ErrNotFound
	}
	out := *r.settings
	return &out, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings *domain.RetentionSettings) error {
	if settings == nil {
		return store.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	settings.EnsureID()
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now
	stored := *settings
	r.settings = &stored
	return nil
}
