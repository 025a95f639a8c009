package bunrepo

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordRepository persists configuration records in a bun-managed SQL
// database. Compare-and-swap writes run a single UPDATE guarded by the
// version column; the rows-affected count decides the outcome.
type RecordRepository struct {
	base baseRepository[domain.ConfigRecord]
}

func NewRecordRepository(db *bun.DB) *RecordRepository {
	handlers := repository.ModelHandlers[*domain.ConfigRecord]{
		NewRecord: func() *domain.ConfigRecord { return &domain.ConfigRecord{} },
		GetID:     func(r *domain.ConfigRecord) uuid.UUID { return r.ID },
		SetID: func(r *domain.ConfigRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier:      func() string { return "name" },
		GetIdentifierValue: func(r *domain.ConfigRecord) string { return r.Name },
	}
	return &RecordRepository{
		base: newBaseRepository[domain.ConfigRecord](db, handlers, func(r *domain.ConfigRecord) *domain.RecordMeta { return &r.RecordMeta }),
	}
}

var _ store.RecordRepository = (*RecordRepository)(nil)

func (r *RecordRepository) Create(ctx context.Context, record *domain.ConfigRecord) error {
	if record.Version == 0 {
		record.Version = 1
	}
	// The partial unique index on (set_name, name) backs this up against
	// concurrent creates; the precheck gives a clean error on the common path.
	if record.State == domain.StateActive {
		if _, err := r.FindActiveByName(ctx, record.Set, record.Name); err == nil {
			return store.ErrDuplicateName
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return r.base.create(ctx, record)
}

func (r *RecordRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	return r.base.get(ctx, withID(id), withDeleted())
}

func (r *RecordRepository) Put(ctx context.Context, record *domain.ConfigRecord, expectedVersion int64) error {
	record.UpdatedAt = time.Now().UTC()
	record.Version = expectedVersion + 1

	res, err := r.base.db.NewUpdate().
		Model(record).
		Where("id = ?", record.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		record.Version = expectedVersion
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		record.Version = expectedVersion
		return r.classifyMiss(ctx, record.ID)
	}
	return nil
}

func (r *RecordRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	res, err := r.base.db.NewDelete().
		Model((*domain.ConfigRecord)(nil)).
		Where("id = ?", id).
		Where("version = ?", expectedVersion).
		ForceDelete().
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *RecordRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.ConfigRecord], error) {
	return r.base.list(ctx, withListOptions(opts))
}

func (r *RecordRepository) FindActiveByName(ctx context.Context, set, name string) (*domain.ConfigRecord, error) {
	return r.base.get(ctx, withActiveName(set, name))
}

// classifyMiss separates "row gone" from "version moved" after a guarded
// write touched zero rows.
func (r *RecordRepository) classifyMiss(ctx context.Context, id uuid.UUID) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return store.ErrVersionConflict
}
