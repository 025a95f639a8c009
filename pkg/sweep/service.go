package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-configvault/internal/settings"
	internalsweep "github.com/goliatone/go-configvault/internal/sweep"
	"github.com/goliatone/go-configvault/pkg/config"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
)

// Re-export types required by consumers so they do not depend on the internal package.
type (
	Options = internalsweep.Options
	Report  = internalsweep.Report
	Entry   = internalsweep.Entry
	Outcome = internalsweep.Outcome
	Purger  = internalsweep.Purger
)

const (
	OutcomePurged   = internalsweep.OutcomePurged
	OutcomeEligible = internalsweep.OutcomeEligible
	OutcomeFailed   = internalsweep.OutcomeFailed
)

// Service exposes the sweep coordinator to consumers.
type Service struct {
	internal *internalsweep.Service
}

// Dependencies wires repositories and the lifecycle engine into the
// coordinator.
type Dependencies struct {
	Records  store.RecordRepository
	Settings store.SettingsRepository
	// Defaults seed the retention policy used until a settings row is
	// persisted. A zero value selects the thirty-day default.
	Defaults domain.RetentionSettings
	// Lifecycle performs the actual purges; pkg/lifecycle.Service fits.
	Lifecycle Purger
	Logger    logger.Logger
	Clock     func() time.Time
}

var errServiceNotInitialised = errors.New("sweep: service not initialised")

// New constructs the sweep facade backed by the internal coordinator.
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
	internal, err := internalsweep.NewService(internalsweep.Dependencies{
		Records:   deps.Records,
		Settings:  settingsSvc,
		Lifecycle: deps.Lifecycle,
		Logger:    deps.Logger,
		Clock:     deps.Clock,
	})
	if err != nil {
		return nil, err
	}
	return &Service{internal: internal}, nil
}

// Run performs one sweep pass and reports what happened.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	if s == nil || s.internal == nil {
		return Report{}, errServiceNotInitialised
	}
	return s.internal.Run(ctx, opts)
}
