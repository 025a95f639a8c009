package di

import (
	"reflect"
	"time"

	"github.com/goliatone/go-configvault/internal/settings"
	"github.com/goliatone/go-configvault/pkg/commands"
	"github.com/goliatone/go-configvault/pkg/config"
	"github.com/goliatone/go-configvault/pkg/crypto"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/validate"
	"github.com/goliatone/go-configvault/pkg/lifecycle"
	"github.com/goliatone/go-configvault/pkg/scaffold"
	"github.com/goliatone/go-configvault/pkg/storage"
	"github.com/goliatone/go-configvault/pkg/sweep"
)

// Options configure the DI container.
type Options struct {
	Config  config.Config
	Storage storage.Providers
	Logger  logger.Logger
	// Validator checks record content against its declared format.
	Validator validate.Validator
	// Scaffolds overrides the built-in starter templates.
	Scaffolds lifecycle.Scaffolder
	Clock     func() time.Time
}

// Container wires repositories, crypto, the engine services, and commands.
type Container struct {
	Config    config.Config
	Storage   storage.Providers
	Boundary  *crypto.Boundary
	Settings  *settings.Service
	Scaffolds *scaffold.Service
	Lifecycle *lifecycle.Service
	Sweeper   *sweep.Service
	Commands  *commands.Registry
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options.
func New(opts Options) (*Container, error) {
	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := opts.Storage
	if providers.Records == nil {
		providers = storage.NewMemoryProviders()
	}

	lgr := opts.Logger
	if lgr == nil {
		lgr = &logger.Nop{}
	}

	boundary, err := crypto.New(crypto.Params{
		Time:      cfg.Crypto.Time,
		MemoryKiB: cfg.Crypto.MemoryKiB,
		Threads:   cfg.Crypto.Threads,
		SaltSize:  cfg.Crypto.SaltSize,
		KeySize:   cfg.Crypto.KeySize,
	})
	if err != nil {
		return nil, err
	}

	defaults := domain.RetentionSettings{
		RetentionPeriod: cfg.Retention.Period,
		AutoRemove:      cfg.Retention.AutoRemove,
	}

	settingsSvc, err := settings.NewService(settings.Dependencies{
		Settings: providers.Settings,
		Logger:   lgr,
		Defaults: defaults,
	})
	if err != nil {
		return nil, err
	}

	var scaffoldSvc *scaffold.Service
	scaffolds := opts.Scaffolds
	if scaffolds == nil {
		scaffoldSvc, err = scaffold.New(scaffold.Dependencies{Logger: lgr})
		if err != nil {
			return nil, err
		}
		scaffolds = scaffoldSvc
	}

	lifecycleSvc, err := lifecycle.New(lifecycle.Dependencies{
		Records:   providers.Records,
		Settings:  providers.Settings,
		Meta:      providers.Meta,
		Defaults:  defaults,
		Boundary:  boundary,
		Validator: opts.Validator,
		Scaffolds: scaffolds,
		Logger:    lgr,
		Clock:     opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	sweepSvc, err := sweep.New(sweep.Dependencies{
		Records:   providers.Records,
		Settings:  providers.Settings,
		Defaults:  defaults,
		Lifecycle: lifecycleSvc,
		Logger:    lgr,
		Clock:     opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	cmdRegistry, err := commands.New(commands.Dependencies{
		Lifecycle: lifecycleSvc,
		Settings:  settingsSvc,
		Sweeper:   sweepSvc,
		Logger:    lgr,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:    cfg,
		Storage:   providers,
		Boundary:  boundary,
		Settings:  settingsSvc,
		Scaffolds: scaffoldSvc,
		Lifecycle: lifecycleSvc,
		Sweeper:   sweepSvc,
		Commands:  cmdRegistry,
	}, nil
}
