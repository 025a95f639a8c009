package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/goliatone/go-configvault/pkg/lifecycle"
)

// Manager layers name-based convenience flows over the lifecycle service, so
// hosts can address records by set and name instead of carrying IDs around.
type Manager struct {
	lifecycle *lifecycle.Service
	records   store.RecordRepository
	logger    logger.Logger
}

// Dependencies bundles the services required by the manager.
type Dependencies struct {
	Lifecycle *lifecycle.Service
	Records   store.RecordRepository
	Logger    logger.Logger
}

var (
	ErrMissingLifecycleService = errors.New("vault: lifecycle service is required")
	ErrMissingRecordRepository = errors.New("vault: record repository is required")

	// ErrEncryptionMismatch is returned when Store targets an existing record
	// whose encryption mode differs from the input. Changing the mode requires
	// an explicit delete and re-create.
	ErrEncryptionMismatch = errors.New("vault: record encryption cannot change")
)

// NewManager constructs the vault manager.
func NewManager(deps Dependencies) (*Manager, error) {
	if deps.Lifecycle == nil {
		return nil, ErrMissingLifecycleService
	}
	if deps.Records == nil {
		return nil, ErrMissingRecordRepository
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Manager{
		lifecycle: deps.Lifecycle,
		records:   deps.Records,
		logger:    deps.Logger,
	}, nil
}

// Store creates the named record, or replaces its content when an active
// record with that set and name already exists.
func (m *Manager) Store(ctx context.Context, input lifecycle.CreateInput) (*domain.ConfigRecord, error) {
	name := strings.TrimSpace(input.Name)
	set := strings.TrimSpace(input.Set)
	if set == "" {
		set = domain.DefaultSet
	}
	existing, err := m.records.FindActiveByName(ctx, set, name)
	switch {
	case err == nil:
		if existing.Encrypted != input.Encrypt {
			return nil, fmt.Errorf("%w: %s/%s", ErrEncryptionMismatch, set, name)
		}
		return m.lifecycle.Update(ctx, existing.ID, input.Content, input.Password)
	case errors.Is(err, store.ErrNotFound):
		return m.lifecycle.Create(ctx, input)
	default:
		return nil, err
	}
}

// Fetch resolves the active record by set and name and returns its plaintext.
func (m *Manager) Fetch(ctx context.Context, set, name string, password []byte) ([]byte, error) {
	record, err := m.Lookup(ctx, set, name)
	if err != nil {
		return nil, err
	}
	return m.lifecycle.Read(ctx, record.ID, password)
}

// Lookup returns the active record registered under the given set and name.
func (m *Manager) Lookup(ctx context.Context, set, name string) (*domain.ConfigRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("vault: record name is required")
	}
	set = strings.TrimSpace(set)
	if set == "" {
		set = domain.DefaultSet
	}
	return m.records.FindActiveByName(ctx, set, name)
}

// Archive retires the active record with the given set and name.
func (m *Manager) Archive(ctx context.Context, set, name string, opts lifecycle.ArchiveOptions) (*domain.ConfigRecord, error) {
	record, err := m.Lookup(ctx, set, name)
	if err != nil {
		return nil, err
	}
	return m.lifecycle.Archive(ctx, record.ID, opts)
}

// Unlock reports whether the password matches the sealed vault check value.
func (m *Manager) Unlock(ctx context.Context, password []byte) (bool, error) {
	return m.lifecycle.VerifyPassword(ctx, password)
}

// ExportEnv assembles a dotenv payload from the active env_var records of a
// set. Records are concatenated in listing order, one trailing newline each.
// Encrypted entries are unsealed with the supplied password.
func (m *Manager) ExportEnv(ctx context.Context, set string, password []byte) ([]byte, error) {
	set = strings.TrimSpace(set)
	if set == "" {
		set = domain.DefaultSet
	}
	result, err := m.lifecycle.List(ctx, store.ListOptions{
		Set:   set,
		State: domain.StateActive,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	exported := 0
	for _, summary := range result.Items {
		if summary.Kind != domain.KindEnvVar {
			continue
		}
		content, err := m.lifecycle.Read(ctx, summary.ID, password)
		if err != nil {
			return nil, fmt.Errorf("vault: %s/%s: %w", set, summary.Name, err)
		}
		exported++
		chunk := bytes.TrimRight(content, "\n")
		if len(chunk) == 0 {
			continue
		}
		buf.Write(chunk)
		buf.WriteByte('\n')
	}
	if exported == 0 {
		return nil, fmt.Errorf("vault: set %q has no active env_var records", set)
	}

	m.logger.Debug("exported env records", logger.Field{Key: "set", Value: set}, logger.Field{Key: "records", Value: exported})
	return buf.Bytes(), nil
}
