package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/service"
)

// SearchRepository implements full-text, vector, and relation lookups.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

func (r *SearchRepository) SearchEntryIDs(ctx context.Context, entryType domain.EntryType, term string, chain []domain.ScopeRef) (map[string]struct{}, error) {
	args := []any{entryType, term}
	query := `SELECT id FROM entries
		 WHERE entry_type = $1
		   AND search_tsv @@ websearch_to_tsquery('english', $2)
		   AND ` + scopeChainPredicate(chain, &args)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (r *SearchRepository) SearchSimilar(ctx context.Context, vector []float32, types []domain.EntryType, k int) ([]service.SimilarEntry, error) {
	if k <= 0 {
		k = 20
	}

	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, string(t))
	}

	vec := pgvector.NewVector(vector)
	rows, err := r.pool.Query(ctx,
		`SELECT id, entry_type, 1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM entries
		 WHERE embedding IS NOT NULL AND entry_type = ANY($2)
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, typeNames, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]service.SimilarEntry, 0, k)
	for rows.Next() {
		var hit service.SimilarEntry
		if err := rows.Scan(&hit.ID, &hit.Type, &hit.Similarity); err != nil {
			return nil, err
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// RelatedIDs resolves relation edges in both directions.
func (r *SearchRepository) RelatedIDs(ctx context.Context, id string) ([]service.RelatedEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.entry_type
		 FROM entry_relations rel JOIN entries e ON e.id = rel.to_id
		 WHERE rel.from_id = $1
		 UNION
		 SELECT e.id, e.entry_type
		 FROM entry_relations rel JOIN entries e ON e.id = rel.from_id
		 WHERE rel.to_id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []service.RelatedEntry
	for rows.Next() {
		var rel service.RelatedEntry
		if err := rows.Scan(&rel.ID, &rel.Type); err != nil {
			return nil, err
		}
		results = append(results, rel)
	}
	return results, rows.Err()
}

// scopeChainPredicate builds an OR over the chain's scope levels.
func scopeChainPredicate(chain []domain.ScopeRef, args *[]any) string {
	if len(chain) == 0 {
		return "FALSE"
	}

	parts := make([]string, 0, len(chain))
	for _, scope := range chain {
		*args = append(*args, scope.Type)
		if scope.Type == domain.ScopeTypeGlobal {
			parts = append(parts, fmt.Sprintf("(scope_type = $%d AND scope_id IS NULL)", len(*args)))
			continue
		}
		part := fmt.Sprintf("(scope_type = $%d", len(*args))
		*args = append(*args, scope.ID)
		parts = append(parts, part+fmt.Sprintf(" AND scope_id = $%d)", len(*args)))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
