package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-configvault/internal/lifecycle"
	"github.com/goliatone/go-configvault/internal/settings"
	"github.com/goliatone/go-configvault/internal/storage/memory"
	"github.com/goliatone/go-configvault/pkg/crypto"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/google/uuid"
)

func TestRunPurgesExpiredOnly(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: 10 * time.Hour, AutoRemove: true})
	ctx := context.Background()

	expired := env.archive(t, "expired.env", ArchiveWith{Override: 2 * time.Hour})
	protected := env.archive(t, "protected.env", ArchiveWith{})

	env.clock.now = env.clock.now.Add(2 * time.Hour)

	report, err := env.sweeper.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", report.Scanned)
	}
	if report.Eligible != 1 || report.Purged != 1 || report.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("protected records must not appear in entries: %+v", report.Entries)
	}
	entry := report.Entries[0]
	if entry.RecordID != expired || entry.Outcome != OutcomePurged {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	env.assertState(t, expired, domain.StateDeleted)
	env.assertState(t, protected, domain.StateArchived)

	// A second pass finds nothing left to do.
	report, err = env.sweeper.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Scanned != 1 || report.Eligible != 0 || report.Purged != 0 {
		t.Fatalf("second pass must purge nothing: %+v", report)
	}
}

func TestRunDryRunReportsWithoutPurging(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: time.Hour, AutoRemove: true})
	ctx := context.Background()

	id := env.archive(t, "stale.env", ArchiveWith{})
	env.clock.now = env.clock.now.Add(time.Hour)

	report, err := env.sweeper.Run(ctx, Options{DryRun: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.DryRun {
		t.Fatalf("report must echo the dry run flag")
	}
	if report.Eligible != 1 || report.Purged != 0 {
		t.Fatalf("dry run must not purge: %+v", report)
	}
	if len(report.Entries) != 1 || report.Entries[0].Outcome != OutcomeEligible {
		t.Fatalf("unexpected entries: %+v", report.Entries)
	}

	env.assertState(t, id, domain.StateArchived)
}

func TestRunAutoRemoveOffOnlyReports(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: time.Hour, AutoRemove: false})
	ctx := context.Background()

	id := env.archive(t, "manual.env", ArchiveWith{})
	env.clock.now = env.clock.now.Add(time.Hour)

	report, err := env.sweeper.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.AutoRemove {
		t.Fatalf("report must echo auto removal off")
	}
	if report.Eligible != 1 || report.Purged != 0 {
		t.Fatalf("auto removal off must not purge: %+v", report)
	}
	if len(report.Entries) != 1 || report.Entries[0].Outcome != OutcomeEligible {
		t.Fatalf("unexpected entries: %+v", report.Entries)
	}

	env.assertState(t, id, domain.StateArchived)
}

func TestRunForceIgnoresRemainingRetention(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: 720 * time.Hour, AutoRemove: true})
	ctx := context.Background()

	id := env.archive(t, "fresh.env", ArchiveWith{})

	report, err := env.sweeper.Run(ctx, Options{Force: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Eligible != 1 || report.Purged != 1 {
		t.Fatalf("force must purge regardless of remaining retention: %+v", report)
	}

	env.assertState(t, id, domain.StateDeleted)
}

func TestRunForceStillGatedByAutoRemove(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: 720 * time.Hour, AutoRemove: false})
	ctx := context.Background()

	id := env.archive(t, "kept.env", ArchiveWith{})

	report, err := env.sweeper.Run(ctx, Options{Force: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Eligible != 1 || report.Purged != 0 {
		t.Fatalf("force must not override auto removal: %+v", report)
	}

	env.assertState(t, id, domain.StateArchived)
}

func TestRunContinuesPastFailedPurge(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: 0, AutoRemove: true})
	ctx := context.Background()

	first := env.archive(t, "first.env", ArchiveWith{})
	second := env.archive(t, "second.env", ArchiveWith{})

	broken := &selectivePurger{
		inner:  env.engine,
		reject: first,
		err:    errors.New("backend unavailable"),
	}
	sweeper, err := NewService(Dependencies{
		Records:   env.records,
		Settings:  env.settings,
		Lifecycle: broken,
		Logger:    &logger.Nop{},
		Clock:     env.clock.Now,
	})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	report, err := sweeper.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Scanned != 2 || report.Eligible != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.Purged != 1 || report.Failed != 1 {
		t.Fatalf("one purge must fail, one succeed: %+v", report)
	}
	for _, entry := range report.Entries {
		switch entry.RecordID {
		case first:
			if entry.Outcome != OutcomeFailed || entry.Error == "" {
				t.Fatalf("expected failure entry: %+v", entry)
			}
		case second:
			if entry.Outcome != OutcomePurged {
				t.Fatalf("expected purge entry: %+v", entry)
			}
		default:
			t.Fatalf("unexpected entry: %+v", entry)
		}
	}

	env.assertState(t, first, domain.StateArchived)
	env.assertState(t, second, domain.StateDeleted)
}

func TestRunStampsClock(t *testing.T) {
	env := newSweepEnv(t, domain.RetentionSettings{RetentionPeriod: time.Hour, AutoRemove: true})
	ctx := context.Background()

	report, err := env.sweeper.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.StartedAt.Equal(env.clock.now) || !report.FinishedAt.Equal(env.clock.now) {
		t.Fatalf("report must stamp the run window: %+v", report)
	}
	if report.Scanned != 0 {
		t.Fatalf("empty store must scan nothing, got %d", report.Scanned)
	}
}

// ArchiveWith qualifies the archive step of the test fixtures.
type ArchiveWith struct {
	Override time.Duration
}

type selectivePurger struct {
	inner  Purger
	reject uuid.UUID
	err    error
}

func (p *selectivePurger) Purge(ctx context.Context, id uuid.UUID, force bool) error {
	if id == p.reject {
		return p.err
	}
	return p.inner.Purge(ctx, id, force)
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type sweepEnv struct {
	sweeper  *Service
	engine   *lifecycle.Service
	records  *memory.RecordRepository
	settings *settings.Service
	clock    *testClock
}

func newSweepEnv(t *testing.T, stored domain.RetentionSettings) *sweepEnv {
	t.Helper()

	records := memory.NewRecordRepository()
	meta := memory.NewVaultMetaRepository()
	settingsRepo := memory.NewSettingsRepository()

	settingsSvc, err := settings.NewService(settings.Dependencies{
		Settings: settingsRepo,
		Logger:   &logger.Nop{},
		Defaults: domain.RetentionSettings{RetentionPeriod: 720 * time.Hour},
	})
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}
	if _, err := settingsSvc.Update(context.Background(), stored); err != nil {
		t.Fatalf("store settings: %v", err)
	}

	boundary, err := crypto.New(crypto.Params{
		Time:      1,
		MemoryKiB: 8 * 1024,
		Threads:   1,
		SaltSize:  16,
		KeySize:   32,
	})
	if err != nil {
		t.Fatalf("new boundary: %v", err)
	}

	clock := &testClock{now: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)}

	engine, err := lifecycle.NewService(lifecycle.Dependencies{
		Records:  records,
		Meta:     meta,
		Settings: settingsSvc,
		Boundary: boundary,
		Logger:   &logger.Nop{},
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	sweeper, err := NewService(Dependencies{
		Records:   records,
		Settings:  settingsSvc,
		Lifecycle: engine,
		Logger:    &logger.Nop{},
		Clock:     clock.Now,
	})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	return &sweepEnv{
		sweeper:  sweeper,
		engine:   engine,
		records:  records,
		settings: settingsSvc,
		clock:    clock,
	}
}

// archive creates an active record and immediately archives it, returning
// its ID.
func (e *sweepEnv) archive(t *testing.T, name string, with ArchiveWith) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	record, err := e.engine.Create(ctx, lifecycle.CreateInput{
		Name:    name,
		Set:     "api",
		Kind:    domain.KindEnvVar,
		Format:  domain.FormatEnv,
		Content: []byte("PORT=8080\n"),
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if _, err := e.engine.Archive(ctx, record.ID, lifecycle.ArchiveOptions{RetentionOverride: with.Override}); err != nil {
		t.Fatalf("archive %s: %v", name, err)
	}
	return record.ID
}

func (e *sweepEnv) assertState(t *testing.T, id uuid.UUID, want domain.State) {
	t.Helper()

	record, err := e.records.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	if record.State != want {
		t.Fatalf("expected state %s, got %s", want, record.State)
	}
}
