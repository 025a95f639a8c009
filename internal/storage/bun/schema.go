package bunrepo

import (
	"context"
	"fmt"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/uptrace/bun"
)

// EnsureSchema creates the vault tables and the active-name index. Safe to
// call on every startup.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*domain.ConfigRecord)(nil),
		(*domain.RetentionSettings)(nil),
		(*domain.VaultMeta)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	// Partial unique index: one active record per (set, name). Archived
	// copies and tombstones may share the name freely.
	_, err := db.NewCreateIndex().
		Model((*domain.ConfigRecord)(nil)).
		Index("idx_config_records_active_name").
		Unique().
		IfNotExists().
		Column("set_name", "name").
		Where("state = 'active'").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("storage: create active name index: %w", err)
	}
	return nil
}
