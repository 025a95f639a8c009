package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a record cannot be located.
var ErrNotFound = errors.New("store: not found")

// ErrVersionConflict is returned when a compare-and-swap write observes a
// version other than the one the caller expected.
var ErrVersionConflict = errors.New("store: version conflict")

// ErrDuplicateName is returned when a write would produce two active records
// with the same name inside one set.
var ErrDuplicateName = errors.New("store: duplicate name")

// ErrAlreadyInitialized is returned when vault metadata exists and a second
// initialization is attempted.
var ErrAlreadyInitialized = errors.New("store: already initialized")

// ListOptions capture the filtering and pagination knobs shared by record
// listings. Zero values mean "no filter".
type ListOptions struct {
	// State restricts results to a single lifecycle state.
	State domain.State
	// Set restricts results to one grouping label.
	Set string
	// Query matches a substring against name, set, and archive reason.
	Query string
	// IncludeDeleted adds tombstones to the result. They are excluded by
	// default so audits have to opt in explicitly.
	IncludeDeleted bool

	Limit  int
	Offset int
}

// ListResult bundles records and totals.
type ListResult[T any] struct {
	Items []T
	Total int
}

// RecordRepository persists configuration records. Put and Delete take the
// version the caller last observed; implementations reject the write with
// ErrVersionConflict when the stored version differs, which is the sole
// concurrency primitive the engine relies on.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.ConfigRecord) error
	Get(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error)
	Put(ctx context.Context, record *domain.ConfigRecord, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error
	List(ctx context.Context, opts ListOptions) (ListResult[domain.ConfigRecord], error)
	FindActiveByName(ctx context.Context, set, name string) (*domain.ConfigRecord, error)
}

// SettingsRepository persists the single store-wide retention policy row.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.RetentionSettings, error)
	Put(ctx context.Context, settings *domain.RetentionSettings) error
}

// VaultMetaRepository persists the vault password check material. Init is
// first-writer-wins: once metadata exists further attempts fail with
// ErrAlreadyInitialized.
type VaultMetaRepository interface {
	Get(ctx context.Context) (*domain.VaultMeta, error)
	Init(ctx context.Context, meta *domain.VaultMeta) error
}
