package vault

import (
	"time"

	"github.com/goliatone/go-configvault/internal/di"
	"github.com/goliatone/go-configvault/pkg/commands"
	"github.com/goliatone/go-configvault/pkg/config"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/validate"
	"github.com/goliatone/go-configvault/pkg/lifecycle"
	"github.com/goliatone/go-configvault/pkg/scaffold"
	"github.com/goliatone/go-configvault/pkg/storage"
	"github.com/goliatone/go-configvault/pkg/sweep"
)

// ModuleOptions configure the vault module facade.
type ModuleOptions struct {
	Config    config.Config
	Storage   storage.Providers
	Logger    logger.Logger
	Validator validate.Validator
	Scaffolds lifecycle.Scaffolder
	Clock     func() time.Time
}

// Module bundles the container and exposes high-level accessors.
type Module struct {
	container *di.Container
	manager   *Manager
}

// NewModule assembles repositories, services, sweeper, manager, and commands.
func NewModule(opts ModuleOptions) (*Module, error) {
	container, err := di.New(di.Options{
		Config:    opts.Config,
		Storage:   opts.Storage,
		Logger:    opts.Logger,
		Validator: opts.Validator,
		Scaffolds: opts.Scaffolds,
		Clock:     opts.Clock,
	})
	if err != nil {
		return nil, err
	}
	manager, err := NewManager(Dependencies{
		Lifecycle: container.Lifecycle,
		Records:   container.Storage.Records,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Module{container: container, manager: manager}, nil
}

// Manager returns the vault manager.
func (m *Module) Manager() *Manager {
	if m == nil || m.container == nil {
		return nil
	}
	return m.manager
}

// Lifecycle returns the record lifecycle service.
func (m *Module) Lifecycle() *lifecycle.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Lifecycle
}

// Sweeper returns the retention sweep service.
func (m *Module) Sweeper() *sweep.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Sweeper
}

// Scaffolds returns the starter content service.
func (m *Module) Scaffolds() *scaffold.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Scaffolds
}

// Commands returns the go-command registry.
func (m *Module) Commands() *commands.Registry {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Commands
}

// Config returns the effective module configuration.
func (m *Module) Config() config.Config {
	if m == nil || m.container == nil {
		return config.Config{}
	}
	return m.container.Config
}

// Container returns the internal DI container.
// This is exposed for advanced use cases like direct storage access.
func (m *Module) Container() *di.Container {
	if m == nil {
		return nil
	}
	return m.container
}
