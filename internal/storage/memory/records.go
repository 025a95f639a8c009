package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/google/uuid"
)

// RecordRepository keeps configuration records in process memory. It backs
// tests and zero-dependency embeddings and enforces the same version and
// uniqueness rules as the persistent adapters.
type RecordRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.ConfigRecord
}

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{
		records: make(map[uuid.UUID]domain.ConfigRecord),
	}
}

var _ store.RecordRepository = (*RecordRepository)(nil)

func (r *RecordRepository) Create(ctx context.Context, record *domain.ConfigRecord) error {
	if record == nil {
		return store.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.State == domain.StateActive {
		if _, ok := r.findActive(record.Set, record.Name, uuid.Nil); ok {
			return store.ErrDuplicateName
		}
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
	r.records[record.ID] = cloneRecord(record)
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneRecord(&record)
	return &out, nil
}

func (r *RecordRepository) Put(ctx context.Context, record *domain.ConfigRecord, expectedVersion int64) error {
	if record == nil {
		return store.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[record.ID]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	if record.State == domain.StateActive {
		if _, ok := r.findActive(record.Set, record.Name, record.ID); ok {
			return store.ErrDuplicateName
		}
	}
	record.UpdatedAt = time.Now().UTC()
	record.Version = expectedVersion + 1
	r.records[record.ID] = cloneRecord(record)
	return nil
}

func (r *RecordRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[id]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	delete(r.records, id)
	return nil
}

func (r *RecordRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.ConfigRecord], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []domain.ConfigRecord
	for _, record := range r.records {
		if !matches(&record, opts) {
			continue
		}
		filtered = append(filtered, cloneRecord(&record))
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
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.findActive(set, name, uuid.Nil)
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneRecord(&record)
	return &out, nil
}

// findActive scans for an active record with the given set and name,
// ignoring the excluded ID so updates do not collide with themselves.
// Callers hold the mutex.
func (r *RecordRepository) findActive(set, name string, exclude uuid.UUID) (domain.ConfigRecord, bool) {
	for _, record := range r.records {
		if record.ID == exclude {
			continue
		}
		if record.State != domain.StateActive {
			continue
		}
		if strings.EqualFold(record.Set, set) && strings.EqualFold(record.Name, name) {
			return record, true
		}
	}
	return domain.ConfigRecord{}, false
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

// cloneRecord copies the record including payload bytes so repository
// values never alias caller slices.
func cloneRecord(record *domain.ConfigRecord) domain.ConfigRecord {
	out := *record
	if record.Plain != nil {
		out.Plain = append([]byte(nil), record.Plain...)
	}
	out.Blob = cloneBlob(record.Blob)
	if record.Metadata != nil {
		out.Metadata = make(domain.JSONMap, len(record.Metadata))
		for k, v := range record.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneBlob(blob domain.EncryptedBlob) domain.EncryptedBlob {
	out := blob
	if blob.Salt != nil {
		out.Salt = append([]byte(nil), blob.Salt...)
	}
	if blob.Nonce != nil {
		out.Nonce = append([]byte(nil), blob.Nonce...)
	}
	if blob.Ciphertext != nil {
		out.Ciphertext = append([]byte(nil), blob.Ciphertext...)
	}
	return out
}
