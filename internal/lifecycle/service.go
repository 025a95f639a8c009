package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-configvault/internal/scaffold"
	"github.com/goliatone/go-configvault/internal/settings"
	"github.com/goliatone/go-configvault/pkg/crypto"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/goliatone/go-configvault/pkg/interfaces/validate"
	"github.com/goliatone/go-configvault/pkg/retention"
	"github.com/google/uuid"
)

// CreateInput captures the fields accepted when a record is created.
type CreateInput struct {
	Name     string         `json:"name"`
	Set      string         `json:"set"`
	Kind     domain.Kind    `json:"kind"`
	Format   domain.Format  `json:"format,omitempty"`
	Content  []byte         `json:"content,omitempty"`
	Metadata domain.JSONMap `json:"metadata,omitempty"`
	Encrypt  bool           `json:"encrypt"`
	Password []byte         `json:"-"`
}

// ArchiveOptions qualify the transition into the archived state.
type ArchiveOptions struct {
	Reason string `json:"reason,omitempty"`
	// RetentionOverride protects this record for a period different from
	// the store-wide one. Zero keeps the store policy.
	RetentionOverride time.Duration `json:"retention_override,omitempty"`
}

// RecordSummary is the payload-free projection used by listings. It never
// carries plaintext, ciphertext, or key material.
type RecordSummary struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Set         string        `json:"set"`
	Kind        domain.Kind   `json:"kind"`
	Format      domain.Format `json:"format,omitempty"`
	Encrypted   bool          `json:"encrypted"`
	State       domain.State  `json:"state"`
	Reason      string        `json:"reason,omitempty"`
	ContentHash string        `json:"content_hash,omitempty"`
	Size        int64         `json:"size"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ArchivedAt  time.Time     `json:"archived_at,omitempty"`
	DeletedAt   time.Time     `json:"deleted_at,omitempty"`
	Version     int64         `json:"version"`
}

// RetentionInfo describes where an archived record stands against the
// retention policy that applies to it.
type RetentionInfo struct {
	RecordID   uuid.UUID     `json:"record_id"`
	ArchivedAt time.Time     `json:"archived_at"`
	Period     time.Duration `json:"period"`
	Source     string        `json:"source"`
	AutoRemove bool          `json:"auto_remove"`
	Eligible   bool          `json:"eligible"`
	Remaining  time.Duration `json:"remaining"`
	Deadline   time.Time     `json:"deadline"`
}

// Stats aggregates store-wide record counts and sizes.
type Stats struct {
	Total            int           `json:"total"`
	Active           int           `json:"active"`
	Archived         int           `json:"archived"`
	Deleted          int           `json:"deleted"`
	Expired          int           `json:"expired"`
	TotalSize        int64         `json:"total_size"`
	OldestArchive    time.Time     `json:"oldest_archive,omitempty"`
	AverageRetention time.Duration `json:"average_retention,omitempty"`
}

// SettingsResolver yields the retention policy that applies to a record.
type SettingsResolver interface {
	Effective(ctx context.Context, record *domain.ConfigRecord) (settings.Effective, error)
}

// Scaffolder produces starter content for records created without a payload.
type Scaffolder interface {
	Render(kind domain.Kind, format domain.Format, data scaffold.Data) ([]byte, error)
}

// Dependencies wires persistence, crypto, and policy into the engine.
type Dependencies struct {
	Records  store.RecordRepository
	Meta     store.VaultMetaRepository
	Settings SettingsResolver
	// Boundary defaults to crypto.New with default parameters.
	Boundary *crypto.Boundary
	// Validator defaults to accepting everything.
	Validator validate.Validator
	// Scaffolds is optional; when nil, records created without content
	// start empty.
	Scaffolds Scaffolder
	Logger    logger.Logger
	Clock     func() time.Time
}

// Service is the lifecycle engine. Every mutation loads the record, builds
// the next shape in memory, and performs exactly one version-guarded write;
// the repositories turn racing writers into version conflicts.
type Service struct {
	records   store.RecordRepository
	meta      store.VaultMetaRepository
	settings  SettingsResolver
	boundary  *crypto.Boundary
	validator validate.Validator
	scaffolds Scaffolder
	log       logger.Logger
	now       func() time.Time
}

var (
	errRecordsRequired  = errors.New("lifecycle: record repository is required")
	errMetaRequired     = errors.New("lifecycle: vault meta repository is required")
	errSettingsRequired = errors.New("lifecycle: settings resolver is required")
	errNameRequired     = errors.New("lifecycle: name is required")
)

// NewService constructs the lifecycle engine.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Records == nil {
		return nil, errRecordsRequired
	}
	if deps.Meta == nil {
		return nil, errMetaRequired
	}
	if deps.Settings == nil {
		return nil, errSettingsRequired
	}
	if deps.Boundary == nil {
		boundary, err := crypto.New(crypto.Params{})
		if err != nil {
			return nil, err
		}
		deps.Boundary = boundary
	}
	if deps.Validator == nil {
		deps.Validator = &validate.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{
		records:   deps.Records,
		meta:      deps.Meta,
		settings:  deps.Settings,
		boundary:  deps.Boundary,
		validator: deps.Validator,
		scaffolds: deps.Scaffolds,
		log:       deps.Logger,
		now:       deps.Clock,
	}, nil
}

// Create persists a brand new active record. Empty content is scaffolded
// when a starter template covers the kind and format. When Encrypt is set
// the payload is sealed before it ever reaches the repository; the vault
// metadata is established on the first encrypted create.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.ConfigRecord, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	set := strings.TrimSpace(input.Set)
	if set == "" {
		set = domain.DefaultSet
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("lifecycle: unknown kind %q", input.Kind)
	}

	now := s.now().UTC()
	content := input.Content
	if len(content) == 0 && s.scaffolds != nil {
		rendered, err := s.scaffolds.Render(input.Kind, input.Format, scaffold.Data{
			Name: name,
			Set:  set,
			Now:  now,
		})
		switch {
		case err == nil:
			content = rendered
		case errors.Is(err, scaffold.ErrNoTemplate):
			// No starter for this shape; the record begins empty.
		default:
			return nil, err
		}
	}
	if err := s.validateContent(input.Format, content); err != nil {
		return nil, err
	}

	record := &domain.ConfigRecord{
		Name:        name,
		Set:         set,
		Kind:        input.Kind,
		Format:      input.Format,
		Metadata:    copyMetadata(input.Metadata),
		State:       domain.StateActive,
		ContentHash: hashContent(content),
		Size:        int64(len(content)),
		Version:     1,
	}
	record.EnsureID()
	record.CreatedAt = now
	record.UpdatedAt = now

	if input.Encrypt {
		if err := s.unlock(ctx, input.Password); err != nil {
			return nil, err
		}
		blob, err := s.boundary.Encrypt(content, input.Password)
		if err != nil {
			return nil, err
		}
		record.Encrypted = true
		record.Blob = blob
	} else {
		record.Plain = append([]byte(nil), content...)
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	s.log.Info("lifecycle: record created",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "set", Value: record.Set},
		logger.Field{Key: "name", Value: record.Name},
		logger.Field{Key: "kind", Value: string(record.Kind)},
		logger.Field{Key: "encrypted", Value: record.Encrypted},
	)
	return record, nil
}

// Get fetches a record by ID, tombstones included. Payload fields stay as
// stored; callers wanting plaintext go through Read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	return s.records.Get(ctx, id)
}

// Read returns the plaintext payload of an active or archived record.
// Encrypted payloads are opened through the crypto boundary; the password
// argument is ignored for plaintext records.
func (s *Service) Read(ctx context.Context, id uuid.UUID, password []byte) ([]byte, error) {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch record.State {
	case domain.StateActive, domain.StateArchived:
	default:
		return nil, invalidState("read", record.State)
	}
	if !record.Encrypted {
		return append([]byte(nil), record.Plain...), nil
	}
	return s.boundary.Decrypt(record.Blob, password)
}

// Update replaces the content of an active record. Encrypted records prove
// the password by opening the current blob before anything changes, then
// re-seal with a fresh salt and nonce.
func (s *Service) Update(ctx context.Context, id uuid.UUID, content, password []byte) (*domain.ConfigRecord, error) {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.State != domain.StateActive {
		return nil, invalidState("update", record.State)
	}
	if err := s.validateContent(record.Format, content); err != nil {
		return nil, err
	}
	if record.Encrypted {
		if _, err := s.boundary.Decrypt(record.Blob, password); err != nil {
			return nil, err
		}
		blob, err := s.boundary.Encrypt(content, password)
		if err != nil {
			return nil, err
		}
		record.Blob = blob
	} else {
		record.Plain = append([]byte(nil), content...)
	}
	record.ContentHash = hashContent(content)
	record.Size = int64(len(content))
	record.UpdatedAt = s.now().UTC()

	if err := s.records.Put(ctx, record, record.Version); err != nil {
		return nil, err
	}
	s.log.Info("lifecycle: record updated",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "size", Value: record.Size},
	)
	return record, nil
}

// Rename changes the name of an active record. The new name must be free
// within the record's set.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, newName string) (*domain.ConfigRecord, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return nil, errNameRequired
	}
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.State != domain.StateActive {
		return nil, invalidState("rename", record.State)
	}
	if record.Name == name {
		return record, nil
	}
	if err := s.checkNameFree(ctx, record.Set, name, record.ID); err != nil {
		return nil, err
	}
	previous := record.Name
	record.Name = name
	record.UpdatedAt = s.now().UTC()

	if err := s.records.Put(ctx, record, record.Version); err != nil {
		return nil, err
	}
	s.log.Info("lifecycle: record renamed",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "from", Value: previous},
		logger.Field{Key: "to", Value: record.Name},
	)
	return record, nil
}

// Archive moves an active record into the archived state and stamps the
// archive time the retention clock runs from.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, opts ArchiveOptions) (*domain.ConfigRecord, error) {
	if opts.RetentionOverride < 0 {
		return nil, fmt.Errorf("lifecycle: retention override must not be negative")
	}
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.State != domain.StateActive {
		return nil, invalidState("archive", record.State)
	}
	now := s.now().UTC()
	record.State = domain.StateArchived
	record.ArchivedAt = now
	record.Reason = strings.TrimSpace(opts.Reason)
	record.RetentionOverride = opts.RetentionOverride
	record.UpdatedAt = now

	if err := s.records.Put(ctx, record, record.Version); err != nil {
		return nil, err
	}
	s.log.Info("lifecycle: record archived",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "reason", Value: record.Reason},
	)
	return record, nil
}

// Restore moves an archived record back to active. The restore fails with
// ErrDuplicateName when the (set, name) slot has been taken since the
// archive; the record stays archived in that case.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error) {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.State != domain.StateArchived {
		return nil, invalidState("restore", record.State)
	}
	if err := s.checkNameFree(ctx, record.Set, record.Name, record.ID); err != nil {
		return nil, err
	}
	record.State = domain.StateActive
	record.ArchivedAt = time.Time{}
	record.Reason = ""
	record.RetentionOverride = 0
	record.UpdatedAt = s.now().UTC()

	if err := s.records.Put(ctx, record, record.Version); err != nil {
		return nil, err
	}
	s.log.Info("lifecycle: record restored",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "set", Value: record.Set},
		logger.Field{Key: "name", Value: record.Name},
	)
	return record, nil
}

// Purge reduces an archived record to a tombstone. Without force the
// effective retention period must have elapsed. Payload fields are cleared
// in the same write, so for encrypted records the ciphertext is gone for
// good.
func (s *Service) Purge(ctx context.Context, id uuid.UUID, force bool) error {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.State != domain.StateArchived {
		return invalidState("purge", record.State)
	}
	now := s.now().UTC()
	if !force {
		policy, err := s.settings.Effective(ctx, record)
		if err != nil {
			return err
		}
		if !retention.Eligible(record.ArchivedAt, policy.Period, now) {
			return retentionNotExpired(retention.Remaining(record.ArchivedAt, policy.Period, now))
		}
	}
	record.State = domain.StateDeleted
	record.DeletedAt = now
	record.UpdatedAt = now
	record.ClearPayload()

	if err := s.records.Put(ctx, record, record.Version); err != nil {
		return err
	}
	s.log.Info("lifecycle: record purged",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "forced", Value: force},
	)
	return nil
}

// DestroyTombstone physically removes a tombstone from the store. Only
// records already in the deleted state qualify.
func (s *Service) DestroyTombstone(ctx context.Context, id uuid.UUID) error {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.State != domain.StateDeleted {
		return invalidState("destroy", record.State)
	}
	if err := s.records.Delete(ctx, id, record.Version); err != nil {
		return err
	}
	s.log.Info("lifecycle: tombstone destroyed",
		logger.Field{Key: "id", Value: id.String()},
	)
	return nil
}

// UpdateRetention sets or clears the per-record retention override of an
// archived record. Zero clears the override and the store policy applies
// again.
func (s *Service) UpdateRetention(ctx context.Context, id uuid.UUID, period time.Duration) (*domain.ConfigRecord, error) {
	if period < 0 {
		return nil, fmt.Errorf("lifecycle: retention period must not be negative")
	}
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.State != domain.StateArchived {
		return nil, invalidState("update retention for", record.State)
	}
	record.RetentionOverride = period
	record.UpdatedAt = s.now().UTC()

	if err := s.records.Put(ctx, record, record.Version); err != nil {
		return nil, err
	}
	s.log.Info("lifecycle: retention override updated",
		logger.Field{Key: "id", Value: record.ID.String()},
		logger.Field{Key: "period", Value: period},
	)
	return record, nil
}

// List enumerates records as payload-free summaries. Tombstones require
// opts.IncludeDeleted.
func (s *Service) List(ctx context.Context, opts store.ListOptions) (store.ListResult[RecordSummary], error) {
	result, err := s.records.List(ctx, opts)
	if err != nil {
		return store.ListResult[RecordSummary]{}, err
	}
	out := store.ListResult[RecordSummary]{
		Items: make([]RecordSummary, 0, len(result.Items)),
		Total: result.Total,
	}
	for i := range result.Items {
		out.Items = append(out.Items, Summarize(&result.Items[i]))
	}
	return out, nil
}

// RetentionInfo reports the effective policy and remaining protection for
// an archived record.
func (s *Service) RetentionInfo(ctx context.Context, id uuid.UUID) (RetentionInfo, error) {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return RetentionInfo{}, err
	}
	if record.State != domain.StateArchived {
		return RetentionInfo{}, invalidState("report retention for", record.State)
	}
	policy, err := s.settings.Effective(ctx, record)
	if err != nil {
		return RetentionInfo{}, err
	}
	now := s.now().UTC()
	return RetentionInfo{
		RecordID:   record.ID,
		ArchivedAt: record.ArchivedAt,
		Period:     policy.Period,
		Source:     policy.Source,
		AutoRemove: policy.AutoRemove,
		Eligible:   retention.Eligible(record.ArchivedAt, policy.Period, now),
		Remaining:  retention.Remaining(record.ArchivedAt, policy.Period, now),
		Deadline:   retention.Deadline(record.ArchivedAt, policy.Period),
	}, nil
}

// Stats walks the whole store, tombstones included, and aggregates counts,
// payload sizes, and retention standing.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	result, err := s.records.List(ctx, store.ListOptions{IncludeDeleted: true})
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(result.Items)}
	now := s.now().UTC()
	var retentionSum time.Duration
	for i := range result.Items {
		record := &result.Items[i]
		stats.TotalSize += record.Size
		switch record.State {
		case domain.StateActive:
			stats.Active++
		case domain.StateArchived:
			stats.Archived++
			policy, err := s.settings.Effective(ctx, record)
			if err != nil {
				return Stats{}, err
			}
			retentionSum += policy.Period
			if retention.Eligible(record.ArchivedAt, policy.Period, now) {
				stats.Expired++
			}
			if stats.OldestArchive.IsZero() || record.ArchivedAt.Before(stats.OldestArchive) {
				stats.OldestArchive = record.ArchivedAt
			}
		case domain.StateDeleted:
			stats.Deleted++
		}
	}
	if stats.Archived > 0 {
		stats.AverageRetention = retentionSum / time.Duration(stats.Archived)
	}
	return stats, nil
}

// VerifyPassword checks a password against the vault metadata without
// touching any record. ErrNotInitialized is returned before the first
// encrypted create.
func (s *Service) VerifyPassword(ctx context.Context, password []byte) (bool, error) {
	meta, err := s.meta.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrNotInitialized
		}
		return false, err
	}
	return s.boundary.VerifyPassword(password, meta.Salt, meta.Check), nil
}

// unlock verifies the password against the vault metadata, establishing
// the metadata on first use.
func (s *Service) unlock(ctx context.Context, password []byte) error {
	if len(password) == 0 {
		return crypto.ErrPasswordRequired
	}
	meta, err := s.meta.Get(ctx)
	switch {
	case err == nil:
		if !s.boundary.VerifyPassword(password, meta.Salt, meta.Check) {
			return crypto.ErrAuthentication
		}
		return nil
	case errors.Is(err, store.ErrNotFound):
		return s.initVault(ctx, password)
	default:
		return err
	}
}

// initVault writes the first vault metadata row. Losing the init race is
// fine as long as the password matches the winner's material.
func (s *Service) initVault(ctx context.Context, password []byte) error {
	salt, check, err := s.boundary.NewPasswordCheck(password)
	if err != nil {
		return err
	}
	meta := &domain.VaultMeta{Salt: salt, Check: check}
	meta.EnsureID()
	now := s.now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	err = s.meta.Init(ctx, meta)
	if err == nil {
		s.log.Info("lifecycle: vault initialized")
		return nil
	}
	if errors.Is(err, store.ErrAlreadyInitialized) {
		current, getErr := s.meta.Get(ctx)
		if getErr != nil {
			return getErr
		}
		if !s.boundary.VerifyPassword(password, current.Salt, current.Check) {
			return crypto.ErrAuthentication
		}
		return nil
	}
	return err
}

func (s *Service) checkNameFree(ctx context.Context, set, name string, self uuid.UUID) error {
	existing, err := s.records.FindActiveByName(ctx, set, name)
	switch {
	case err == nil:
		if existing.ID == self {
			return nil
		}
		return fmt.Errorf("lifecycle: %s/%s: %w", set, name, store.ErrDuplicateName)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *Service) validateContent(format domain.Format, content []byte) error {
	if format == "" {
		return nil
	}
	result, err := s.validator.Validate(format, content)
	if err != nil {
		return fmt.Errorf("lifecycle: validate: %w", err)
	}
	if !result.Valid {
		return &ValidationError{Format: format, Issues: result.Issues}
	}
	return nil
}

// Summarize projects a record into its payload-free summary.
func Summarize(record *domain.ConfigRecord) RecordSummary {
	return RecordSummary{
		ID:          record.ID,
		Name:        record.Name,
		Set:         record.Set,
		Kind:        record.Kind,
		Format:      record.Format,
		Encrypted:   record.Encrypted,
		State:       record.State,
		Reason:      record.Reason,
		ContentHash: record.ContentHash,
		Size:        record.Size,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		ArchivedAt:  record.ArchivedAt,
		DeletedAt:   record.DeletedAt,
		Version:     record.Version,
	}
}

func copyMetadata(src domain.JSONMap) domain.JSONMap {
	if len(src) == 0 {
		return nil
	}
	dst := make(domain.JSONMap, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
