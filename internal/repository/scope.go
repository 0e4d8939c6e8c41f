package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stratumhq/stratum/internal/domain"
)

type ScopeRepository struct {
	pool *pgxpool.Pool
}

func NewScopeRepository(pool *pgxpool.Pool) *ScopeRepository {
	return &ScopeRepository{pool: pool}
}

func (r *ScopeRepository) Create(ctx context.Context, s *domain.Scope) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scopes (id, scope_type, name, parent_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Type, s.Name, nullableString(s.ParentID), s.CreatedAt,
	)
	return err
}

func (r *ScopeRepository) GetByID(ctx context.Context, id string) (*domain.Scope, error) {
	var s domain.Scope
	var parentID *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, scope_type, name, parent_id, created_at
		 FROM scopes WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Type, &s.Name, &parentID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScopeNotFound
		}
		return nil, err
	}
	if parentID != nil {
		s.ParentID = *parentID
	}
	return &s, nil
}

func (r *ScopeRepository) List(ctx context.Context) ([]*domain.Scope, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, scope_type, name, parent_id, created_at
		 FROM scopes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScopeRows(rows)
}

func (r *ScopeRepository) ListByType(ctx context.Context, scopeType domain.ScopeType) ([]*domain.Scope, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, scope_type, name, parent_id, created_at
		 FROM scopes WHERE scope_type = $1 ORDER BY created_at DESC`,
		scopeType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScopeRows(rows)
}

func (r *ScopeRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Scope, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, scope_type, name, parent_id, created_at
		 FROM scopes WHERE parent_id = $1 ORDER BY created_at DESC`,
		parentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScopeRows(rows)
}

func (r *ScopeRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM scopes WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrScopeNotFound
	}
	return nil
}

func scanScopeRows(rows pgx.Rows) ([]*domain.Scope, error) {
	var results []*domain.Scope
	for rows.Next() {
		var s domain.Scope
		var parentID *string
		if err := rows.Scan(&s.ID, &s.Type, &s.Name, &parentID, &s.CreatedAt); err != nil {
			return nil, err
		}
		if parentID != nil {
			s.ParentID = *parentID
		}
		results = append(results, &s)
	}
	return results, rows.Err()
}
