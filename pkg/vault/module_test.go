package vault

import (
	"context"
	"testing"

	"github.com/goliatone/go-configvault/pkg/commands"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/lifecycle"
	"github.com/goliatone/go-configvault/pkg/storage"
)

func TestModuleConstruction(t *testing.T) {
	module, err := NewModule(ModuleOptions{
		Logger:  &logger.Nop{},
		Storage: storage.NewMemoryProviders(),
	})
	if err != nil {
		t.Fatalf("module: %v", err)
	}
	if module.Manager() == nil {
		t.Fatalf("expected manager")
	}
	if module.Lifecycle() == nil {
		t.Fatalf("expected lifecycle service")
	}
	if module.Sweeper() == nil {
		t.Fatalf("expected sweeper")
	}
	if module.Commands() == nil {
		t.Fatalf("expected commands registry")
	}
	if module.Scaffolds() == nil {
		t.Fatalf("expected scaffold service")
	}
	if module.Config().Retention.Period == 0 {
		t.Fatalf("expected config defaults to apply")
	}
	if module.Container() == nil {
		t.Fatalf("expected container")
	}
}

func TestModuleNilAccessors(t *testing.T) {
	var module *Module
	if module.Manager() != nil || module.Lifecycle() != nil || module.Sweeper() != nil {
		t.Fatalf("nil module must return nil services")
	}
	if module.Commands() != nil || module.Scaffolds() != nil || module.Container() != nil {
		t.Fatalf("nil module must return nil registries")
	}
	if module.Config().Storage.Driver != "" {
		t.Fatalf("nil module must return a zero config")
	}
}

func TestModuleEndToEnd(t *testing.T) {
	ctx := context.Background()
	module, err := NewModule(ModuleOptions{
		Logger:  &logger.Nop{},
		Storage: storage.NewMemoryProviders(),
	})
	if err != nil {
		t.Fatalf("module: %v", err)
	}

	if err := module.Commands().CreateRecord.Execute(ctx, commands.CreateRecord{
		Name:    "database.env",
		Set:     "api",
		Kind:    "env_var",
		Format:  "env",
		Content: []byte("DATABASE_URL=postgres://localhost/app\n"),
	}); err != nil {
		t.Fatalf("create record: %v", err)
	}

	content, err := module.Manager().Fetch(ctx, "api", "database.env", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(content) != "DATABASE_URL=postgres://localhost/app\n" {
		t.Fatalf("unexpected content %q", content)
	}

	record, err := module.Manager().Archive(ctx, "api", "database.env", lifecycle.ArchiveOptions{Reason: "superseded"})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if record.State != domain.StateArchived {
		t.Fatalf("expected archived record, got %s", record.State)
	}

	stats, err := module.Lifecycle().Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 || stats.Archived != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
