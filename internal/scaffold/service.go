package scaffold

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	gotemplate "github.com/goliatone/go-template"
)

// ErrNoTemplate is returned when no starter template covers a kind/format
// combination.
var ErrNoTemplate = errors.New("scaffold: no template registered")

// Data feeds the starter templates.
type Data struct {
	Name string
	Set  string
	Now  time.Time
}

// Dependencies wires rendering options into the service.
type Dependencies struct {
	Logger logger.Logger
	// RendererOptions forward directly to go-template's renderer.
	RendererOptions []gotemplate.Option
}

// Service renders starter content for new records so hosts can create
// artifacts without handing over an initial payload. Templates are keyed by
// kind and format; a format-only fallback covers the generic case.
type Service struct {
	renderer *gotemplate.Engine
	log      logger.Logger

	mu        sync.RWMutex
	templates map[string]string
}

// NewService builds the scaffold service with the built-in starter set.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	rendererOpts := []gotemplate.Option{
		gotemplate.WithBaseDir("."),
	}
	rendererOpts = append(rendererOpts, deps.RendererOptions...)
	renderer, err := gotemplate.NewRenderer(rendererOpts...)
	if err != nil {
		return nil, fmt.Errorf("scaffold: renderer: %w", err)
	}
	s := &Service{
		renderer:  renderer,
		log:       deps.Logger,
		templates: make(map[string]string),
	}
	s.registerDefaults()
	return s, nil
}

// Register installs or replaces the starter template for a kind/format
// pair. An empty kind registers a format-wide fallback.
func (s *Service) Register(kind domain.Kind, format domain.Format, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[templateKey(kind, format)] = body
}

// Render produces starter content. Lookup prefers the exact kind/format
// template and falls back to the format-wide one.
func (s *Service) Render(kind domain.Kind, format domain.Format, data Data) ([]byte, error) {
	s.mu.RLock()
	body, ok := s.templates[templateKey(kind, format)]
	if !ok {
		body, ok = s.templates[templateKey("", format)]
	}
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s/%s", ErrNoTemplate, kind, format)
	}

	payload := map[string]any{
		"name":    data.Name,
		"set":     data.Set,
		"created": data.Now.UTC().Format(time.RFC3339),
	}
	s.mu.Lock()
	rendered, err := s.renderer.RenderString(body, payload)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("scaffold: render %s/%s: %w", kind, format, err)
	}
	return []byte(rendered), nil
}

// registerDefaults installs the starter bodies. JSON stays comment-free;
// the rest carry a provenance header.
func (s *Service) registerDefaults() {
	defaults := map[domain.Format]string{
		domain.FormatJSON: "{}\n",
		domain.FormatYAML: "# {{ name }}\n---\n",
		domain.FormatTOML: "# {{ name }}\n",
		domain.FormatINI:  "; {{ name }}\n[main]\n",
		domain.FormatCFG:  "# Configuration File\n",
		domain.FormatEnv:  "# Environment variables for {{ name }}\n",
		domain.FormatNix:  "{ }\n",
	}
	for format, body := range defaults {
		s.templates[templateKey("", format)] = body
	}
	s.templates[templateKey(domain.KindEnvVar, domain.FormatEnv)] = "# {{ name }} ({{ set }}) created {{ created }}\n"
}

func templateKey(kind domain.Kind, format domain.Format) string {
	return strings.ToLower(string(kind)) + "|" + strings.ToLower(string(format))
}
