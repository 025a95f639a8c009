package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	opts "github.com/goliatone/go-options"
)

// Sources reported by Effective, ordered from weakest to strongest layer.
const (
	SourceDefaults = "defaults"
	SourceStore    = "store"
	SourceRecord   = "record"
)

// Effective is the retention policy that applies to one record after the
// default, store, and per-record layers are merged.
type Effective struct {
	Period     time.Duration
	AutoRemove bool
	// Source names the layer that decided the period.
	Source string
	Trace  opts.Trace
}

// Dependencies wires persistence and logging into the service.
type Dependencies struct {
	Settings store.SettingsRepository
	Logger   logger.Logger
	// Defaults apply when no settings row has been persisted yet.
	Defaults domain.RetentionSettings
}

// Service manages the store-wide retention settings and resolves the
// effective policy for individual records by layering per-record overrides
// over the persisted row over configured defaults.
type Service struct {
	repo     store.SettingsRepository
	log      logger.Logger
	defaults domain.RetentionSettings
}

var errRepositoryRequired = errors.New("settings: repository is required")

// NewService constructs the settings service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Settings == nil {
		return nil, errRepositoryRequired
	}
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Defaults.RetentionPeriod < 0 {
		return nil, fmt.Errorf("settings: default retention period must not be negative")
	}
	return &Service{
		repo:     deps.Settings,
		log:      deps.Logger,
		defaults: deps.Defaults,
	}, nil
}

// Get returns the persisted settings, or the configured defaults when none
// have been stored yet.
func (s *Service) Get(ctx context.Context) (*domain.RetentionSettings, error) {
	stored, err := s.repo.Get(ctx)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, store.ErrNotFound):
		out := s.defaults
		return &out, nil
	default:
		return nil, err
	}
}

// Update validates and persists new store-wide settings.
func (s *Service) Update(ctx context.Context, settings domain.RetentionSettings) (*domain.RetentionSettings, error) {
	if settings.RetentionPeriod < 0 {
		return nil, fmt.Errorf("settings: retention period must not be negative")
	}
	if err := s.repo.Put(ctx, &settings); err != nil {
		return nil, err
	}
	s.log.Info("settings: retention updated",
		logger.Field{Key: "period", Value: settings.RetentionPeriod},
		logger.Field{Key: "auto_remove", Value: settings.AutoRemove},
	)
	return &settings, nil
}

// Effective resolves the retention policy for a record. A nil record yields
// the store-wide policy.
func (s *Service) Effective(ctx context.Context, record *domain.ConfigRecord) (Effective, error) {
	layers := []opts.Layer[map[string]any]{
		opts.NewLayer(
			opts.NewScope(SourceDefaults, opts.ScopePrioritySystem-1000, opts.WithScopeLabel("Defaults")),
			map[string]any{
				"retention_period": s.defaults.RetentionPeriod,
				"auto_remove":      s.defaults.AutoRemove,
			},
		),
	}
	source := SourceDefaults

	stored, err := s.repo.Get(ctx)
	switch {
	case err == nil:
		layers = append(layers, opts.NewLayer(
			opts.NewScope(SourceStore, opts.ScopePrioritySystem, opts.WithScopeLabel("Store")),
			map[string]any{
				"retention_period": stored.RetentionPeriod,
				"auto_remove":      stored.AutoRemove,
			},
			opts.WithSnapshotID[map[string]any](stored.ID.String()),
		))
		source = SourceStore
	case errors.Is(err, store.ErrNotFound):
	default:
		return Effective{}, err
	}

	if record != nil && record.RetentionOverride > 0 {
		layers = append(layers, opts.NewLayer(
			opts.NewScope(SourceRecord, opts.ScopePriorityUser, opts.WithScopeLabel("Record")),
			map[string]any{
				"retention_period": record.RetentionOverride,
			},
			opts.WithSnapshotID[map[string]any](record.ID.String()),
		))
		source = SourceRecord
	}

	stack, err := opts.NewStack(layers...)
	if err != nil {
		return Effective{}, fmt.Errorf("settings: build layers: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Effective{}, fmt.Errorf("settings: merge layers: %w", err)
	}

	value, trace, err := merged.ResolveWithTrace("retention_period")
	if err != nil {
		return Effective{}, fmt.Errorf("settings: resolve retention period: %w", err)
	}
	period, ok := value.(time.Duration)
	if !ok {
		return Effective{}, fmt.Errorf("settings: retention period resolved to %T", value)
	}

	autoRemove := s.defaults.AutoRemove
	if v, _, err := merged.ResolveWithTrace("auto_remove"); err == nil {
		if b, ok := v.(bool); ok {
			autoRemove = b
		}
	}

	return Effective{
		Period:     period,
		AutoRemove: autoRemove,
		Source:     source,
		Trace:      trace,
	}, nil
}
