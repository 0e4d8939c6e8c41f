package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/service"
)

const entryColumns = `id, entry_type, scope_type, scope_id, category, name, content, tags, priority, level, valid_from, valid_until, is_active, created_by, created_at, updated_at`

type EntryRepository struct {
	db dbtx
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{db: pool}
}

func NewEntryRepositoryWithTx(tx pgx.Tx) *EntryRepository {
	return &EntryRepository{db: tx}
}

func (r *EntryRepository) Create(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO entries (id, entry_type, scope_type, scope_id, category, name, content, tags, priority, level, valid_from, valid_until, is_active, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Type, e.ScopeType, nullableString(e.ScopeID), nullableString(e.Category), e.Name, e.Content,
		e.Tags, nullableInt(e.Priority), nullableString(e.Level), e.ValidFrom, e.ValidUntil,
		e.IsActive, nullableString(e.CreatedBy), e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`,
		id,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EntryRepository) Update(ctx context.Context, e *domain.Entry) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET category = $1, content = $2, tags = $3, priority = $4, level = $5, valid_from = $6, valid_until = $7, updated_at = $8
		 WHERE id = $9`,
		nullableString(e.Category), e.Content, e.Tags, nullableInt(e.Priority), nullableString(e.Level),
		e.ValidFrom, e.ValidUntil, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) Deactivate(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) CreateVersion(ctx context.Context, v *domain.EntryVersion) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO entry_versions (id, entry_id, version_num, content, change_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.EntryID, v.VersionNum, v.Content, nullableString(v.ChangeReason), v.CreatedAt,
	)
	return err
}

func (r *EntryRepository) LatestVersionNum(ctx context.Context, entryID string) (int64, error) {
	var latest int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_num), 0) FROM entry_versions WHERE entry_id = $1`,
		entryID,
	).Scan(&latest)
	if err != nil {
		return 0, err
	}
	return latest, nil
}

func (r *EntryRepository) AddRelation(ctx context.Context, fromID, toID, relType string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO entry_relations (from_id, to_id, rel_type, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		fromID, toID, relType, time.Now().UTC(),
	)
	return err
}

func (r *EntryRepository) ListByScope(ctx context.Context, entryType domain.EntryType, scope domain.ScopeRef, filter service.EntryFilter, limit int) ([]*domain.Entry, error) {
	conds := []string{"entry_type = $1"}
	args := []any{entryType}

	appendScopeCond(&conds, &args, scope)
	appendFilterConds(&conds, &args, filter)

	args = append(args, limit)
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + strings.Join(conds, " AND ") +
		orderClause(entryType) + fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *EntryRepository) ListValidAt(ctx context.Context, scope domain.ScopeRef, filter service.EntryFilter, at time.Time, limit int) ([]*domain.Entry, error) {
	conds := []string{"entry_type = $1"}
	args := []any{domain.EntryTypeKnowledge}

	appendScopeCond(&conds, &args, scope)
	appendFilterConds(&conds, &args, filter)

	args = append(args, at)
	conds = append(conds, fmt.Sprintf("(valid_from IS NULL OR valid_from <= $%d)", len(args)))
	conds = append(conds, fmt.Sprintf("(valid_until IS NULL OR valid_until >= $%d)", len(args)))

	args = append(args, limit)
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + strings.Join(conds, " AND ") +
		" ORDER BY created_at DESC" + fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *EntryRepository) ListValidDuring(ctx context.Context, scope domain.ScopeRef, filter service.EntryFilter, start, end time.Time, limit int) ([]*domain.Entry, error) {
	conds := []string{"entry_type = $1"}
	args := []any{domain.EntryTypeKnowledge}

	appendScopeCond(&conds, &args, scope)
	appendFilterConds(&conds, &args, filter)

	// Interval overlap, inclusive at both ends. A NULL bound is open.
	args = append(args, end)
	conds = append(conds, fmt.Sprintf("(valid_from IS NULL OR valid_from <= $%d)", len(args)))
	args = append(args, start)
	conds = append(conds, fmt.Sprintf("(valid_until IS NULL OR valid_until >= $%d)", len(args)))

	args = append(args, limit)
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + strings.Join(conds, " AND ") +
		" ORDER BY created_at DESC" + fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func appendScopeCond(conds *[]string, args *[]any, scope domain.ScopeRef) {
	*args = append(*args, scope.Type)
	if scope.Type == domain.ScopeTypeGlobal {
		*conds = append(*conds, fmt.Sprintf("scope_type = $%d AND scope_id IS NULL", len(*args)))
		return
	}
	cond := fmt.Sprintf("scope_type = $%d", len(*args))
	*args = append(*args, scope.ID)
	*conds = append(*conds, cond+fmt.Sprintf(" AND scope_id = $%d", len(*args)))
}

func appendFilterConds(conds *[]string, args *[]any, filter service.EntryFilter) {
	if !filter.IncludeInactive {
		*conds = append(*conds, "is_active = TRUE")
	}
	if filter.Category != "" {
		*args = append(*args, filter.Category)
		*conds = append(*conds, fmt.Sprintf("category = $%d", len(*args)))
	}
	if filter.Level != "" {
		*args = append(*args, filter.Level)
		*conds = append(*conds, fmt.Sprintf("level = $%d", len(*args)))
	}
	if filter.CreatedBy != "" {
		*args = append(*args, filter.CreatedBy)
		*conds = append(*conds, fmt.Sprintf("created_by = $%d", len(*args)))
	}
	if filter.PriorityMin != nil {
		*args = append(*args, *filter.PriorityMin)
		*conds = append(*conds, fmt.Sprintf("priority >= $%d", len(*args)))
	}
	if filter.PriorityMax != nil {
		*args = append(*args, *filter.PriorityMax)
		*conds = append(*conds, fmt.Sprintf("priority <= $%d", len(*args)))
	}
	if filter.CreatedAfter != nil {
		*args = append(*args, *filter.CreatedAfter)
		*conds = append(*conds, fmt.Sprintf("created_at >= $%d", len(*args)))
	}
	if filter.CreatedBefore != nil {
		*args = append(*args, *filter.CreatedBefore)
		*conds = append(*conds, fmt.Sprintf("created_at <= $%d", len(*args)))
	}
	if filter.UpdatedAfter != nil {
		*args = append(*args, *filter.UpdatedAfter)
		*conds = append(*conds, fmt.Sprintf("updated_at >= $%d", len(*args)))
	}
	if filter.UpdatedBefore != nil {
		*args = append(*args, *filter.UpdatedBefore)
		*conds = append(*conds, fmt.Sprintf("updated_at <= $%d", len(*args)))
	}
}

// orderClause fixes the native result order: guidelines by descending
// priority, everything by creation recency. Updates must not reshuffle
// the order, so created_at is the tiebreaker, never updated_at.
func orderClause(entryType domain.EntryType) string {
	if entryType == domain.EntryTypeGuideline {
		return " ORDER BY priority DESC NULLS LAST, created_at DESC"
	}
	return " ORDER BY created_at DESC"
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	var scopeID, category, level, createdBy *string
	var priority *int
	err := row.Scan(&e.ID, &e.Type, &e.ScopeType, &scopeID, &category, &e.Name, &e.Content, &e.Tags,
		&priority, &level, &e.ValidFrom, &e.ValidUntil, &e.IsActive, &createdBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if scopeID != nil {
		e.ScopeID = *scopeID
	}
	if category != nil {
		e.Category = *category
	}
	if level != nil {
		e.Level = *level
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	if priority != nil {
		e.Priority = *priority
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var results []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
