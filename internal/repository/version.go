package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stratumhq/stratum/internal/domain"
)

type VersionRepository struct {
	pool *pgxpool.Pool
}

func NewVersionRepository(pool *pgxpool.Pool) *VersionRepository {
	return &VersionRepository{pool: pool}
}

// BatchVersions loads the full version history for every given id of
// one entry type in a single read. Rows come back grouped per entry,
// newest version first, so the first row of a group is the current
// snapshot. Ids without version rows are absent from the result.
func (r *VersionRepository) BatchVersions(ctx context.Context, entryType domain.EntryType, ids []string) (map[string]*domain.VersionSet, error) {
	out := make(map[string]*domain.VersionSet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT v.id, v.entry_id, v.version_num, v.content, v.change_reason, v.created_at
		 FROM entry_versions v
		 JOIN entries e ON e.id = v.entry_id
		 WHERE v.entry_id = ANY($1) AND e.entry_type = $2
		 ORDER BY v.entry_id, v.version_num DESC`,
		ids, entryType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.EntryVersion
		var changeReason *string
		if err := rows.Scan(&v.ID, &v.EntryID, &v.VersionNum, &v.Content, &changeReason, &v.CreatedAt); err != nil {
			return nil, err
		}
		if changeReason != nil {
			v.ChangeReason = *changeReason
		}

		set, ok := out[v.EntryID]
		if !ok {
			set = &domain.VersionSet{Current: &v}
			out[v.EntryID] = set
		}
		set.History = append(set.History, &v)
	}
	return out, rows.Err()
}
