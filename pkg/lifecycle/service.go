package lifecycle

import (
	"context"
	"errors"
	"time"

	internallifecycle "github.com/goliatone/go-configvault/internal/lifecycle"
	"github.com/goliatone/go-configvault/internal/scaffold"
	"github.com/goliatone/go-configvault/internal/settings"
	"github.com/goliatone/go-configvault/pkg/config"
	"github.com/goliatone/go-configvault/pkg/crypto"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/goliatone/go-configvault/pkg/interfaces/validate"
	"github.com/google/uuid"
)

// Re-export types required by consumers so they do not depend on the internal package.
type (
	CreateInput     = internallifecycle.CreateInput
	ArchiveOptions  = internallifecycle.ArchiveOptions
	RecordSummary   = internallifecycle.RecordSummary
	RetentionInfo   = internallifecycle.RetentionInfo
	Stats           = internallifecycle.Stats
	ValidationError = internallifecycle.ValidationError
	Scaffolder      = internallifecycle.Scaffolder
)

// Error taxonomy for hosts; match with errors.Is.
var (
	ErrNotFound               = store.ErrNotFound
	ErrDuplicateName          = store.ErrDuplicateName
	ErrConcurrentModification = store.ErrVersionConflict
	ErrInvalidState           = internallifecycle.ErrInvalidState
	ErrRetentionNotExpired    = internallifecycle.ErrRetentionNotExpired
	ErrNotInitialized         = internallifecycle.ErrNotInitialized
	ErrAuthentication         = crypto.ErrAuthentication
	ErrPasswordRequired       = crypto.ErrPasswordRequired
)

// Service exposes the lifecycle engine to consumers.
type Service struct {
	internal *internallifecycle.Service
	settings *settings.Service
}

// Dependencies wires repositories, crypto, and policy into the engine.
type Dependencies struct {
	Records  store.RecordRepository
	Settings store.SettingsRepository
	Meta     store.VaultMetaRepository
	// Defaults seed the retention policy used until a settings row is
	// persisted. A zero value selects the thirty-day default.
	Defaults domain.RetentionSettings
	// Boundary defaults to the library's Argon2id/XChaCha20 parameters.
	Boundary *crypto.Boundary
	// Validator defaults to accepting everything.
	Validator validate.Validator
	// Scaffolds defaults to the built-in starter templates.
	Scaffolds Scaffolder
	Logger    logger.Logger
	Clock     func() time.Time
}

var errServiceNotInitialised = errors.New("lifecycle: service not initialised")

// New constructs the lifecycle facade backed by the internal engine.
func New(deps Dependencies) (*Service, error) {
	if deps.Defaults.RetentionPeriod == 0 && !deps.Defaults.AutoRemove {
		deps.Defaults = domain.RetentionSettings{RetentionPeriod: config.DefaultRetentionPeriod}
	}
	settingsSvc, err := settings.NewService(settings.Dependencies{
		Settings: deps.Settings,
		Logger:   deps.Logger,
		Defaults: deps.Defaults,
	})
	if err != nil {
		return nil, err
	}
	scaffolds := deps.Scaffolds
	if scaffolds == nil {
		svc, err := scaffold.NewService(scaffold.Dependencies{Logger: deps.Logger})
		if err != nil {
			return nil, err
		}
		scaffolds = svc
	}
	internal, err := internallifecycle.NewService(internallifecycle.Dependencies{
		Records:   deps.Records,
		Meta:      deps.Meta,
		Settings:  settingsSvc,
		Boundary:  deps.Boundary,
		Validator: deps.Validator,
		Scaffolds: scaffolds,
		Logger:    deps.Logger,
		Clock:     deps.Clock,
	})
	if err != nil {
		return nil, err
	}
	return &Service{internal: internal, settings: settingsSvc}, nil
}

// Create persists a brand new active record.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Create(ctx, input)
}

// Get fetches a record by ID, tombstones included.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Get(ctx, id)
}

// Read returns the plaintext payload of an active or archived record.
func (s *Service) Read(ctx context.Context, id uuid.UUID, password []byte) ([]byte, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Read(ctx, id, password)
}

// Update replaces the content of an active record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, content, password []byte) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Update(ctx, id, content, password)
}

// Rename changes the name of an active record.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, newName string) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Rename(ctx, id, newName)
}

// Archive moves an active record into the archived state.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, opts ArchiveOptions) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Archive(ctx, id, opts)
}

// Restore moves an archived record back to active.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Restore(ctx, id)
}

// Purge reduces an archived record to a tombstone.
func (s *Service) Purge(ctx context.Context, id uuid.UUID, force bool) error {
	if s == nil || s.internal == nil {
		return errServiceNotInitialised
	}
	return s.internal.Purge(ctx, id, force)
}

// DestroyTombstone physically removes a tombstone from the store.
func (s *Service) DestroyTombstone(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.internal == nil {
		return errServiceNotInitialised
	}
	return s.internal.DestroyTombstone(ctx, id)
}

// UpdateRetention sets or clears the per-record retention override.
func (s *Service) UpdateRetention(ctx context.Context, id uuid.UUID, period time.Duration) (*domain.ConfigRecord, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.UpdateRetention(ctx, id, period)
}

// List enumerates records as payload-free summaries.
func (s *Service) List(ctx context.Context, opts store.ListOptions) (store.ListResult[RecordSummary], error) {
	if s == nil || s.internal == nil {
		return store.ListResult[RecordSummary]{}, errServiceNotInitialised
	}
	return s.internal.List(ctx, opts)
}

// RetentionInfo reports the effective policy for an archived record.
func (s *Service) RetentionInfo(ctx context.Context, id uuid.UUID) (RetentionInfo, error) {
	if s == nil || s.internal == nil {
		return RetentionInfo{}, errServiceNotInitialised
	}
	return s.internal.RetentionInfo(ctx, id)
}

// Stats aggregates store-wide record counts and sizes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.internal == nil {
		return Stats{}, errServiceNotInitialised
	}
	return s.internal.Stats(ctx)
}

// VerifyPassword checks a password against the vault metadata.
func (s *Service) VerifyPassword(ctx context.Context, password []byte) (bool, error) {
	if s == nil || s.internal == nil {
		return false, errServiceNotInitialised
	}
	return s.internal.VerifyPassword(ctx, password)
}

// RetentionSettings returns the store-wide retention policy, falling back
// to the configured defaults before the first update.
func (s *Service) RetentionSettings(ctx context.Context) (*domain.RetentionSettings, error) {
	if s == nil || s.settings == nil {
		return nil, errServiceNotInitialised
	}
	return s.settings.Get(ctx)
}

// SetRetentionSettings validates and persists a new store-wide policy.
func (s *Service) SetRetentionSettings(ctx context.Context, next domain.RetentionSettings) (*domain.RetentionSettings, error) {
	if s == nil || s.settings == nil {
		return nil, errServiceNotInitialised
	}
	return s.settings.Update(ctx, next)
}
