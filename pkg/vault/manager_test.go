package vault

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-configvault/pkg/crypto"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/goliatone/go-configvault/pkg/lifecycle"
	"github.com/goliatone/go-configvault/pkg/storage"
)

func TestManagerStoreCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	created, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "database.env",
		Set:     "api",
		Kind:    domain.KindEnvVar,
		Format:  domain.FormatEnv,
		Content: []byte("DATABASE_URL=postgres://localhost/app\n"),
	})
	if err != nil {
		t.Fatalf("store create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	updated, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "database.env",
		Set:     "api",
		Kind:    domain.KindEnvVar,
		Format:  domain.FormatEnv,
		Content: []byte("DATABASE_URL=postgres://db/app\n"),
	})
	if err != nil {
		t.Fatalf("store update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("store must update in place, got new record %s", updated.ID)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	content, err := manager.Fetch(ctx, "api", "database.env", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(content) != "DATABASE_URL=postgres://db/app\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestManagerStoreRejectsEncryptionChange(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "plain.env",
		Set:     "api",
		Kind:    domain.KindEnvVar,
		Content: []byte("A=1\n"),
	}); err != nil {
		t.Fatalf("store plain: %v", err)
	}

	_, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:     "plain.env",
		Set:      "api",
		Kind:     domain.KindEnvVar,
		Content:  []byte("A=2\n"),
		Encrypt:  true,
		Password: []byte("password"),
	})
	if !errors.Is(err, ErrEncryptionMismatch) {
		t.Fatalf("expected ErrEncryptionMismatch, got %v", err)
	}
}

func TestManagerStoreEncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	password := []byte("vault password")

	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:     "secrets.env",
		Set:      "api",
		Kind:     domain.KindEnvVar,
		Content:  []byte("TOKEN=one\n"),
		Encrypt:  true,
		Password: password,
	}); err != nil {
		t.Fatalf("store encrypted: %v", err)
	}
	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:     "secrets.env",
		Set:      "api",
		Kind:     domain.KindEnvVar,
		Content:  []byte("TOKEN=two\n"),
		Encrypt:  true,
		Password: password,
	}); err != nil {
		t.Fatalf("store encrypted update: %v", err)
	}

	content, err := manager.Fetch(ctx, "api", "secrets.env", password)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(content) != "TOKEN=two\n" {
		t.Fatalf("unexpected content %q", content)
	}

	if _, err := manager.Fetch(ctx, "api", "secrets.env", []byte("wrong")); !errors.Is(err, crypto.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}

	ok, err := manager.Unlock(ctx, password)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to unlock the vault")
	}
}

func TestManagerLookupRequiresName(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	if _, err := manager.Lookup(ctx, "api", "   "); err == nil {
		t.Fatalf("expected name requirement")
	}
	if _, err := manager.Lookup(ctx, "api", "missing.env"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerArchiveByName(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "old.env",
		Set:     "api",
		Kind:    domain.KindEnvVar,
		Content: []byte("A=1\n"),
	}); err != nil {
		t.Fatalf("store: %v", err)
	}

	archived, err := manager.Archive(ctx, "api", "old.env", lifecycle.ArchiveOptions{Reason: "rotated"})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.State != domain.StateArchived || archived.Reason != "rotated" {
		t.Fatalf("archive did not apply: %+v", archived)
	}

	// The name no longer resolves once the record left the active state.
	if _, err := manager.Lookup(ctx, "api", "old.env"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after archive, got %v", err)
	}
}

func TestManagerExportEnv(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	password := []byte("vault password")

	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "database.env",
		Set:     "api",
		Kind:    domain.KindEnvVar,
		Format:  domain.FormatEnv,
		Content: []byte("DATABASE_URL=postgres://localhost/app"),
	}); err != nil {
		t.Fatalf("store database.env: %v", err)
	}
	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:     "secrets.env",
		Set:      "api",
		Kind:     domain.KindEnvVar,
		Format:   domain.FormatEnv,
		Content:  []byte("TOKEN=abc123\n\n"),
		Encrypt:  true,
		Password: password,
	}); err != nil {
		t.Fatalf("store secrets.env: %v", err)
	}
	// Non env_var records in the set stay out of the export.
	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "app.json",
		Set:     "api",
		Kind:    domain.KindConfigFile,
		Format:  domain.FormatJSON,
		Content: []byte("{}\n"),
	}); err != nil {
		t.Fatalf("store app.json: %v", err)
	}

	out, err := manager.ExportEnv(ctx, "api", password)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "DATABASE_URL=postgres://localhost/app\nTOKEN=abc123\n"
	if string(out) != want {
		t.Fatalf("unexpected export:\n%q\nwant:\n%q", out, want)
	}
	if strings.Contains(string(out), "{}") {
		t.Fatalf("config files must not leak into the env export")
	}
}

func TestManagerExportEnvEmptySet(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	if _, err := manager.ExportEnv(ctx, "api", nil); err == nil {
		t.Fatalf("expected error for set without env records")
	}

	// A set holding only config files exports nothing either.
	if _, err := manager.Store(ctx, lifecycle.CreateInput{
		Name:    "app.json",
		Set:     "api",
		Kind:    domain.KindConfigFile,
		Content: []byte("{}\n"),
	}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := manager.ExportEnv(ctx, "api", nil); err == nil {
		t.Fatalf("expected error when no env_var records are active")
	}
}

func TestNewManagerValidatesDependencies(t *testing.T) {
	providers := storage.NewMemoryProviders()
	svc := newTestLifecycle(t, providers)

	if _, err := NewManager(Dependencies{Records: providers.Records}); !errors.Is(err, ErrMissingLifecycleService) {
		t.Fatalf("expected ErrMissingLifecycleService, got %v", err)
	}
	if _, err := NewManager(Dependencies{Lifecycle: svc}); !errors.Is(err, ErrMissingRecordRepository) {
		t.Fatalf("expected ErrMissingRecordRepository, got %v", err)
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	providers := storage.NewMemoryProviders()
	svc := newTestLifecycle(t, providers)
	manager, err := NewManager(Dependencies{
		Lifecycle: svc,
		Records:   providers.Records,
		Logger:    &logger.Nop{},
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return manager
}

func newTestLifecycle(t *testing.T, providers storage.Providers) *lifecycle.Service {
	t.Helper()
	boundary, err := crypto.New(crypto.Params{
		Time:      1,
		MemoryKiB: 8 * 1024,
		Threads:   1,
		SaltSize:  16,
		KeySize:   32,
	})
	if err != nil {
		t.Fatalf("boundary: %v", err)
	}
	svc, err := lifecycle.New(lifecycle.Dependencies{
		Records:  providers.Records,
		Settings: providers.Settings,
		Meta:     providers.Meta,
		Boundary: boundary,
		Logger:   &logger.Nop{},
	})
	if err != nil {
		t.Fatalf("lifecycle service: %v", err)
	}
	return svc
}
