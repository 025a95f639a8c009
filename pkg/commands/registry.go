package commands

import (
	"context"

	command "github.com/goliatone/go-command"
	internalcommands "github.com/goliatone/go-configvault/internal/commands"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/lifecycle"
	"github.com/goliatone/go-configvault/pkg/sweep"
)

// Re-export request types so consumers need not import internal packages.
type (
	CreateRecord  = internalcommands.CreateRecord
	UpdateRecord  = internalcommands.UpdateRecord
	RenameRecord  = internalcommands.RenameRecord
	ArchiveRecord = internalcommands.ArchiveRecord
	RestoreRecord = internalcommands.RestoreRecord
	PurgeRecord   = internalcommands.PurgeRecord
	SetRetention  = internalcommands.SetRetention
	RunSweep      = internalcommands.RunSweep
)

// SettingsService is the slice of the settings layer the SetRetention
// command writes through.
type SettingsService interface {
	Get(ctx context.Context) (*domain.RetentionSettings, error)
	Update(ctx context.Context, settings domain.RetentionSettings) (*domain.RetentionSettings, error)
}

// Registry exposes go-command compatible handlers backed by the module services.
type Registry struct {
	Catalog       *internalcommands.Catalog
	CreateRecord  command.Commander[CreateRecord]
	UpdateRecord  command.Commander[UpdateRecord]
	RenameRecord  command.Commander[RenameRecord]
	ArchiveRecord command.Commander[ArchiveRecord]
	RestoreRecord command.Commander[RestoreRecord]
	PurgeRecord   command.Commander[PurgeRecord]
	SetRetention  command.Commander[SetRetention]
	RunSweep      command.Commander[RunSweep]
}

// Dependencies mirror the internal command dependencies but keep them public.
type Dependencies struct {
	Lifecycle *lifecycle.Service
	Settings  SettingsService
	Sweeper   *sweep.Service
	Logger    logger.Logger
}

// New builds the registry using the provided dependencies.
func New(deps Dependencies) (*Registry, error) {
	catalog, err := internalcommands.NewCatalog(internalcommands.Dependencies{
		Lifecycle: deps.Lifecycle,
		Settings:  deps.Settings,
		Sweeper:   deps.Sweeper,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{
		Catalog:       catalog,
		CreateRecord:  catalog.CreateRecord,
		UpdateRecord:  catalog.UpdateRecord,
		RenameRecord:  catalog.RenameRecord,
		ArchiveRecord: catalog.ArchiveRecord,
		RestoreRecord: catalog.RestoreRecord,
		PurgeRecord:   catalog.PurgeRecord,
		SetRetention:  catalog.SetRetention,
		RunSweep:      catalog.RunSweep,
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (r *Registry) Commanders() []any {
	if r == nil {
		return nil
	}
	return []any{
		r.CreateRecord,
		r.UpdateRecord,
		r.RenameRecord,
		r.ArchiveRecord,
		r.RestoreRecord,
		r.PurgeRecord,
		r.SetRetention,
		r.RunSweep,
	}
}
