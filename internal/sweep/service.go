package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-configvault/internal/settings"
	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/logger"
	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	"github.com/goliatone/go-configvault/pkg/retention"
	"github.com/google/uuid"
)

// Outcome labels what the sweep did, or could have done, with a record.
type Outcome string

const (
	// OutcomePurged means the record was reduced to a tombstone.
	OutcomePurged Outcome = "purged"
	// OutcomeEligible means the record could be purged but was not,
	// because of a dry run or because auto-removal is off.
	OutcomeEligible Outcome = "eligible"
	// OutcomeFailed means a purge was attempted and did not go through.
	OutcomeFailed Outcome = "failed"
)

// Options control a single sweep run.
type Options struct {
	// DryRun reports eligible records without purging any.
	DryRun bool `json:"dry_run"`
	// Force treats every archived record as eligible regardless of its
	// remaining retention.
	Force bool `json:"force"`
}

// Entry records the outcome for one record.
type Entry struct {
	RecordID uuid.UUID `json:"record_id"`
	Name     string    `json:"name"`
	Set      string    `json:"set"`
	Outcome  Outcome   `json:"outcome"`
	Error    string    `json:"error,omitempty"`
}

// Report summarizes a sweep run.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	AutoRemove bool      `json:"auto_remove"`
	Scanned    int       `json:"scanned"`
	Eligible   int       `json:"eligible"`
	Purged     int       `json:"purged"`
	Failed     int       `json:"failed"`
	Entries    []Entry   `json:"entries,omitempty"`
}

// SettingsResolver yields the retention policy that applies to a record.
type SettingsResolver interface {
	Effective(ctx context.Context, record *domain.ConfigRecord) (settings.Effective, error)
}

// Purger is the slice of the lifecycle engine the sweep drives.
type Purger interface {
	Purge(ctx context.Context, id uuid.UUID, force bool) error
}

// Dependencies wire storage, policy, and the lifecycle engine into the
// coordinator.
type Dependencies struct {
	Records   store.RecordRepository
	Settings  SettingsResolver
	Lifecycle Purger
	Logger    logger.Logger
	Clock     func() time.Time
}

// Service walks archived records and purges, or reports, the ones whose
// retention has elapsed. It never spawns goroutines or timers; hosts decide
// when a sweep runs.
type Service struct {
	records   store.RecordRepository
	settings  SettingsResolver
	lifecycle Purger
	log       logger.Logger
	now       func() time.Time
}

var (
	errRecordsRequired   = errors.New("sweep: record repository is required")
	errSettingsRequired  = errors.New("sweep: settings resolver is required")
	errLifecycleRequired = errors.New("sweep: lifecycle purger is required")
)

// NewService constructs the sweep coordinator.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Records == nil {
		return nil, errRecordsRequired
	}
	if deps.Settings == nil {
		return nil, errSettingsRequired
	}
	if deps.Lifecycle == nil {
		return nil, errLifecycleRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{
		records:   deps.Records,
		settings:  deps.Settings,
		lifecycle: deps.Lifecycle,
		log:       deps.Logger,
		now:       deps.Clock,
	}, nil
}

// Run performs one sweep pass. Purging happens only when the store policy
// has auto-removal on and the run is not a dry run; otherwise eligible
// records are reported. A failed purge is recorded and the pass continues
// with the next record. Running twice in a row purges nothing the second
// time.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{
		StartedAt: s.now().UTC(),
		DryRun:    opts.DryRun,
	}

	policy, err := s.settings.Effective(ctx, nil)
	if err != nil {
		return report, err
	}
	report.AutoRemove = policy.AutoRemove

	result, err := s.records.List(ctx, store.ListOptions{State: domain.StateArchived})
	if err != nil {
		return report, err
	}

	for i := range result.Items {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.now().UTC()
			return report, err
		}
		record := &result.Items[i]
		report.Scanned++

		effective, err := s.settings.Effective(ctx, record)
		if err != nil {
			report.Failed++
			report.Entries = append(report.Entries, Entry{
				RecordID: record.ID,
				Name:     record.Name,
				Set:      record.Set,
				Outcome:  OutcomeFailed,
				Error:    err.Error(),
			})
			continue
		}
		if !opts.Force && !retention.Eligible(record.ArchivedAt, effective.Period, s.now().UTC()) {
			continue
		}
		report.Eligible++

		entry := Entry{
			RecordID: record.ID,
			Name:     record.Name,
			Set:      record.Set,
			Outcome:  OutcomeEligible,
		}
		if opts.DryRun || !report.AutoRemove {
			report.Entries = append(report.Entries, entry)
			continue
		}

		if err := s.lifecycle.Purge(ctx, record.ID, opts.Force); err != nil {
			entry.Outcome = OutcomeFailed
			entry.Error = err.Error()
			report.Failed++
			s.log.Warn("sweep: purge failed",
				logger.Field{Key: "id", Value: record.ID.String()},
				logger.Field{Key: "error", Value: err.Error()},
			)
		} else {
			entry.Outcome = OutcomePurged
			report.Purged++
		}
		report.Entries = append(report.Entries, entry)
	}

	report.FinishedAt = s.now().UTC()
	s.log.Info("sweep: run complete",
		logger.Field{Key: "scanned", Value: report.Scanned},
		logger.Field{Key: "eligible", Value: report.Eligible},
		logger.Field{Key: "purged", Value: report.Purged},
		logger.Field{Key: "failed", Value: report.Failed},
		logger.Field{Key: "dry_run", Value: report.DryRun},
	)
	return report, nil
}
