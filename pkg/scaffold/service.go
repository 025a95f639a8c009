package scaffold

import (
	"errors"

	internalscaffold "github.com/goliatone/go-configvault/internal/scaffold"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	gotemplate "github.com/goliatone/go-template"
)

// Re-export types required by consumers so they do not depend on the internal package.
type Data = internalscaffold.Data

// ErrNoTemplate mirrors the internal sentinel for callers matching with
// errors.Is.
var ErrNoTemplate = internalscaffold.ErrNoTemplate

// Service renders starter content for new records.
type Service struct {
	internal *internalscaffold.Service
}

// Dependencies wires rendering options into the service.
type Dependencies struct {
	Logger          logger.Logger
	RendererOptions []gotemplate.Option
}

var errServiceNotInitialised = errors.New("scaffold: service not initialised")

// New constructs the scaffold facade backed by the internal service.
func New(deps Dependencies) (*Service, error) {
	internal, err := internalscaffold.NewService(internalscaffold.Dependencies{
		Logger:          deps.Logger,
		RendererOptions: deps.RendererOptions,
	})
	if err != nil {
		return nil, err
	}
	return &Service{internal: internal}, nil
}

// Register installs or replaces the starter template for a kind/format pair.
func (s *Service) Register(kind domain.Kind, format domain.Format, body string) {
	if s == nil || s.internal == nil {
		return
	}
	s.internal.Register(kind, format, body)
}

// Render produces starter content for the kind/format pair.
func (s *Service) Render(kind domain.Kind, format domain.Format, data Data) ([]byte, error) {
	if s == nil || s.internal == nil {
		return nil, errServiceNotInitialised
	}
	return s.internal.Render(kind, format, data)
}
