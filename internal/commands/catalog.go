package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-configvault/internal/lifecycle"
	"github.com/goliatone/go-configvault/internal/sweep"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/google/uuid"
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	CreateRecord  command.Commander[CreateRecord]
	UpdateRecord  command.Commander[UpdateRecord]
	RenameRecord  command.Commander[RenameRecord]
	ArchiveRecord command.Commander[ArchiveRecord]
	RestoreRecord command.Commander[RestoreRecord]
	PurgeRecord   command.Commander[PurgeRecord]
	SetRetention  command.Commander[SetRetention]
	RunSweep      command.Commander[RunSweep]
}

type lifecycleService interface {
	Create(ctx context.Context, input lifecycle.CreateInput) (*domain.ConfigRecord, error)
	Update(ctx context.Context, id uuid.UUID, content, password []byte) (*domain.ConfigRecord, error)
	Rename(ctx context.Context, id uuid.UUID, newName string) (*domain.ConfigRecord, error)
	Archive(ctx context.Context, id uuid.UUID, opts lifecycle.ArchiveOptions) (*domain.ConfigRecord, error)
	Restore(ctx context.Context, id uuid.UUID) (*domain.ConfigRecord, error)
	Purge(ctx context.Context, id uuid.UUID, force bool) error
	UpdateRetention(ctx context.Context, id uuid.UUID, period time.Duration) (*domain.ConfigRecord, error)
}

type settingsService interface {
	Get(ctx context.Context) (*domain.RetentionSettings, error)
	Update(ctx context.Context, settings domain.RetentionSettings) (*domain.RetentionSettings, error)
}

type sweepService interface {
	Run(ctx context.Context, opts sweep.Options) (sweep.Report, error)
}

// Dependencies wires the engine services into the command catalog.
type Dependencies struct {
	Lifecycle lifecycleService
	Settings  settingsService
	Sweeper   sweepService
	Logger    logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Lifecycle == nil {
		return nil, errors.New("commands: lifecycle service is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("commands: settings service is required")
	}
	if deps.Sweeper == nil {
		return nil, errors.New("commands: sweep service is required")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	return &Catalog{
		CreateRecord:  recordCreateCommand{svc: deps.Lifecycle},
		UpdateRecord:  recordUpdateCommand{svc: deps.Lifecycle},
		RenameRecord:  recordRenameCommand{svc: deps.Lifecycle},
		ArchiveRecord: recordArchiveCommand{svc: deps.Lifecycle},
		RestoreRecord: recordRestoreCommand{svc: deps.Lifecycle},
		PurgeRecord:   recordPurgeCommand{svc: deps.Lifecycle},
		SetRetention:  setRetentionCommand{lifecycle: deps.Lifecycle, settings: deps.Settings},
		RunSweep:      runSweepCommand{svc: deps.Sweeper},
	}, nil
}

// CreateRecord is the payload for creating a record through a transport.
// Password travels outside serialized forms.
type CreateRecord struct {
	Name     string         `json:"name"`
	Set      string         `json:"set"`
	Kind     string         `json:"kind"`
	Format   string         `json:"format,omitempty"`
	Content  []byte         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Encrypt  bool           `json:"encrypt"`
	Password string         `json:"-"`
}

type recordCreateCommand struct {
	svc lifecycleService
}

func (c recordCreateCommand) Execute(ctx context.Context, msg CreateRecord) error {
	_, err := c.svc.Create(ctx, lifecycle.CreateInput{
		Name:     msg.Name,
		Set:      msg.Set,
		Kind:     domain.Kind(strings.TrimSpace(msg.Kind)),
		Format:   domain.Format(strings.TrimSpace(msg.Format)),
		Content:  msg.Content,
		Metadata: domain.JSONMap(msg.Metadata),
		Encrypt:  msg.Encrypt,
		Password: []byte(msg.Password),
	})
	return err
}

// UpdateRecord replaces the content of an active record.
type UpdateRecord struct {
	ID       string `json:"id"`
	Content  []byte `json:"content"`
	Password string `json:"-"`
}

type recordUpdateCommand struct {
	svc lifecycleService
}

func (c recordUpdateCommand) Execute(ctx context.Context, msg UpdateRecord) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	_, err = c.svc.Update(ctx, id, msg.Content, []byte(msg.Password))
	return err
}

// RenameRecord changes the name of an active record.
type RenameRecord struct {
	ID      string `json:"id"`
	NewName string `json:"new_name"`
}

type recordRenameCommand struct {
	svc lifecycleService
}

func (c recordRenameCommand) Execute(ctx context.Context, msg RenameRecord) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	_, err = c.svc.Rename(ctx, id, msg.NewName)
	return err
}

// ArchiveRecord moves a record into the archived state.
type ArchiveRecord struct {
	ID                string        `json:"id"`
	Reason            string        `json:"reason,omitempty"`
	RetentionOverride time.Duration `json:"retention_override,omitempty"`
}

type recordArchiveCommand struct {
	svc lifecycleService
}

func (c recordArchiveCommand) Execute(ctx context.Context, msg ArchiveRecord) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	_, err = c.svc.Archive(ctx, id, lifecycle.ArchiveOptions{
		Reason:            msg.Reason,
		RetentionOverride: msg.RetentionOverride,
	})
	return err
}

// RestoreRecord moves an archived record back to active.
type RestoreRecord struct {
	ID string `json:"id"`
}

type recordRestoreCommand struct {
	svc lifecycleService
}

func (c recordRestoreCommand) Execute(ctx context.Context, msg RestoreRecord) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	_, err = c.svc.Restore(ctx, id)
	return err
}

// PurgeRecord reduces an archived record to a tombstone.
type PurgeRecord struct {
	ID    string `json:"id"`
	Force bool   `json:"force"`
}

type recordPurgeCommand struct {
	svc lifecycleService
}

func (c recordPurgeCommand) Execute(ctx context.Context, msg PurgeRecord) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	return c.svc.Purge(ctx, id, msg.Force)
}

// SetRetention updates retention policy. With an ID it sets the per-record
// override of an archived record; without one it updates the store-wide
// settings.
type SetRetention struct {
	ID         string        `json:"id,omitempty"`
	Period     time.Duration `json:"period"`
	AutoRemove *bool         `json:"auto_remove,omitempty"`
}

type setRetentionCommand struct {
	lifecycle lifecycleService
	settings  settingsService
}

func (c setRetentionCommand) Execute(ctx context.Context, msg SetRetention) error {
	if strings.TrimSpace(msg.ID) != "" {
		id, err := parseID(msg.ID)
		if err != nil {
			return err
		}
		_, err = c.lifecycle.UpdateRetention(ctx, id, msg.Period)
		return err
	}
	current, err := c.settings.Get(ctx)
	if err != nil {
		return err
	}
	next := *current
	next.RetentionPeriod = msg.Period
	if msg.AutoRemove != nil {
		next.AutoRemove = *msg.AutoRemove
	}
	_, err = c.settings.Update(ctx, next)
	return err
}

// RunSweep triggers a single sweep pass.
type RunSweep struct {
	DryRun bool `json:"dry_run"`
	Force  bool `json:"force"`
}

type runSweepCommand struct {
	svc sweepService
}

func (c runSweepCommand) Execute(ctx context.Context, msg RunSweep) error {
	_, err := c.svc.Run(ctx, sweep.Options{
		DryRun: msg.DryRun,
		Force:  msg.Force,
	})
	return err
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("commands: invalid record id %q", raw)
	}
	return id, nil
}
