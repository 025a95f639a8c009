package bunrepo

import (
	"strings"

	"github.com/goliatone/go-configvault/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func withID(id uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	}
}

// withDeleted lifts bun's automatic soft-delete filter so tombstones stay
// reachable by ID.
func withDeleted() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.WhereAllWithDeleted()
	}
}

func withActiveName(set, name string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("state = ?", "active").
			Where("LOWER(set_name) = ?", strings.ToLower(set)).
			Where("LOWER(name) = ?", strings.ToLower(name))
	}
}

func withListOptions(opts store.ListOptions) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if opts.IncludeDeleted {
			q = q.WhereAllWithDeleted()
		}
		if opts.State != "" {
			q = q.Where("state = ?", string(opts.State))
		}
		if opts.Set != "" {
			q = q.Where("LOWER(set_name) = ?", strings.ToLower(opts.Set))
		}
		if opts.Query != "" {
			pattern := "%" + strings.ToLower(opts.Query) + "%"
			q = q.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
				return g.Where("LOWER(name) LIKE ?", pattern).
					WhereOr("LOWER(set_name) LIKE ?", pattern).
					WhereOr("LOWER(reason) LIKE ?", pattern)
			})
		}
		if opts.Limit > 0 {
			q = q.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
		return q.Order("created_at ASC")
	}
}
