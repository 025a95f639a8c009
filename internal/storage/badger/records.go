package badgerrepo

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/google/uuid"
)

// RecordRepository stores configuration records in Badger. Every write runs
// inside one transaction covering the record and its name-index entry;
// Badger's conflict detection turns racing writers into version conflicts.
type RecordRepository struct {
	store *Store
}

func NewRecordRepository(s *Store) *RecordRepository {
	return &RecordRepository{store: s}
}

var _ store.RecordRepository = (*RecordRepository)(nil)

func (r *RecordRepository) Create(ctx context.Context, record *domain.ConfigRecord) error {
	if record == nil {
		return store.ErrNotFound
	}
	record.EnsureID()
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Version == 0 {
		record.Version = 1
	}

	err := r.store.db.Update(func(txn *badger.Txn) error {
		if record.State == domain.StateActive {
			if err := checkNameFree(txn, record.Set, record.Name, record.ID); err != nil {
				return err
			}
			if err := txn.Set(activeNameKey(record.Set, record.Name), record.ID[:]); err != nil {
				return err
			}
		}
		data, err := encode(record)
		if err != nil {
			return err
		}
		return txn.Set(recordKey(record.ID), data)
	})
	return mapBadgerError(err)
}

func (r *RecordRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	var record domain.ConfigRecord
	err := r.store.db.View(func(txn *badger.Txn) error {
		return loadRecord(txn, recordKey(id), &record)
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}
	return &record, nil
}

func (r *RecordRepository) Put(ctx context.Context, record *domain.ConfigRecord, expectedVersion int64) error {
	if record == nil {
		return store.ErrNotFound
	}
	err := r.store.db.Update(func(txn *badger.Txn) error {
		var stored domain.ConfigRecord
		if err := loadRecord(txn, recordKey(record.ID), &stored); err != nil {
			return err
		}
		if stored.Version != expectedVersion {
			return store.ErrVersionConflict
		}
		if err := syncNameIndex(txn, &stored, record); err != nil {
			return err
		}
		record.UpdatedAt = time.Now().UTC()
		record.Version = expectedVersion + 1
		data, err := encode(record)
		if err != nil {
			record.Version = expectedVersion
			return err
		}
		return txn.Set(recordKey(record.ID), data)
	})
	return mapBadgerError(err)
}

func (r *RecordRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	err := r.store.db.Update(func(txn *badger.Txn) error {
		var stored domain.ConfigRecord
		if err := loadRecord(txn, recordKey(id), &stored); err != nil {
			return err
		}
		if stored.Version != expectedVersion {
			return store.ErrVersionConflict
		}
		if stored.State == domain.StateActive {
			if err := txn.Delete(activeNameKey(stored.Set, stored.Name)); err != nil {
				return err
			}
		}
		return txn.Delete(recordKey(id))
	})
	return mapBadgerError(err)
}

func (r *RecordRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.ConfigRecord], error) {
	var filtered []domain.ConfigRecord
	err := r.store.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record domain.ConfigRecord
			err := it.Item().Value(func(val []byte) error {
				return decode(val, &record)
			})
			if err != nil {
				return err
			}
			if matches(&record, opts) {
				filtered = append(filtered, record)
			}
		}
		return nil
	})
	if err != nil {
		return store.ListResult[domain.ConfigRecord]{}, mapBadgerError(err)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	total := len(filtered)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return store.ListResult[domain.ConfigRecord]{
		Items: filtered[start:end],
		Total: total,
	}, nil
}

func (r *RecordRepository) FindActiveByName(ctx context.Context, set, name string) (*domain.ConfigRecord, error) {
	var record domain.ConfigRecord
	err := r.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(activeNameKey(set, name))
		if err != nil {
			return err
		}
		idBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuid.FromBytes(idBytes)
		if err != nil {
			return err
		}
		return loadRecord(txn, recordKey(id), &record)
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}
	return &record, nil
}

// syncNameIndex reconciles the active-name index with a record's new shape:
// the old entry goes away when the record leaves the active state or is
// renamed, and the new entry is claimed when it is active.
func syncNameIndex(txn *badger.Txn, stored, next *domain.ConfigRecord) error {
	oldKey := activeNameKey(stored.Set, stored.Name)
	newKey := activeNameKey(next.Set, next.Name)

	if stored.State == domain.StateActive {
		if next.State != domain.StateActive || !bytes.Equal(oldKey, newKey) {
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
		}
	}
	if next.State == domain.StateActive {
		if err := checkNameFree(txn, next.Set, next.Name, next.ID); err != nil {
			return err
		}
		return txn.Set(newKey, next.ID[:])
	}
	return nil
}

func checkNameFree(txn *badger.Txn, set, name string, self uuid.UUID) error {
	item, err := txn.Get(activeNameKey(set, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	idBytes, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if owner, err := uuid.FromBytes(idBytes); err == nil && owner == self {
		return nil
	}
	return store.ErrDuplicateName
}

func loadRecord(txn *badger.Txn, key []byte, record *domain.ConfigRecord) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return decode(val, record)
	})
}

func matches(record *domain.ConfigRecord, opts store.ListOptions) bool {
	if record.State == domain.StateDeleted && !opts.IncludeDeleted {
		return false
	}
	if opts.State != "" && record.State != opts.State {
		return false
	}
	if opts.Set != "" && !strings.EqualFold(record.Set, opts.Set) {
		return false
	}
	if opts.Query != "" {
		q := strings.ToLower(opts.Query)
		if !strings.Contains(strings.ToLower(record.Name), q) &&
			!strings.Contains(strings.ToLower(record.Set), q) &&
			!strings.Contains(strings.ToLower(record.Reason), q) {
			return false
		}
	}
	return true
}

// mapBadgerError folds Badger sentinels into the store vocabulary. A commit
// conflict means another writer changed the keys this transaction read,
// which is exactly a version conflict.
func mapBadgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return store.ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		return store.ErrVersionConflict
	default:
		return err
	}
}
