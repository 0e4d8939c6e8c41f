package service

import (
	"context"

	"github.com/stratumhq/stratum/internal/domain"
)

// SearchStore defines the full-text index interface
type SearchStore interface {
	// SearchEntryIDs returns the ids of entries of the given type whose
	// indexed text matches the term, constrained to the scope chain.
	// Presence only: full-text match is a recall filter, not a ranking
	// signal.
	SearchEntryIDs(ctx context.Context, entryType domain.EntryType, term string, chain []domain.ScopeRef) (map[string]struct{}, error)
}

// SimilarEntry is one approximate-nearest-neighbor hit.
type SimilarEntry struct {
	ID         string
	Type       domain.EntryType
	Similarity float32
}

// VectorStore defines the vector similarity interface
type VectorStore interface {
	SearchSimilar(ctx context.Context, vector []float32, types []domain.EntryType, k int) ([]SimilarEntry, error)
}

// RelatedEntry is one graph-relation hit.
type RelatedEntry struct {
	ID   string
	Type domain.EntryType
}

// RelationStore defines the graph relation interface
type RelationStore interface {
	RelatedIDs(ctx context.Context, id string) ([]RelatedEntry, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// semanticScore is a similarity hit keyed by entry id.
type semanticScore struct {
	entryType domain.EntryType
	score     float32
}

// candidateSet holds the request-scoped auxiliary signals gathered ahead
// of the relational fetch: full-text matches and relation hits as
// presence sets, semantic hits with their similarity.
type candidateSet struct {
	ftsIDs     map[domain.EntryType]map[string]struct{}
	relatedIDs map[domain.EntryType]map[string]struct{}
	semantic   map[string]semanticScore
}

func newCandidateSet() *candidateSet {
	return &candidateSet{
		ftsIDs:     make(map[domain.EntryType]map[string]struct{}),
		relatedIDs: make(map[domain.EntryType]map[string]struct{}),
		semantic:   make(map[string]semanticScore),
	}
}

// hasSignals reports whether any ranking signal was gathered.
func (c *candidateSet) hasSignals() bool {
	if c == nil {
		return false
	}
	return len(c.ftsIDs) > 0 || len(c.semantic) > 0
}

// recallSet returns the presence set that constrains the relational
// fetch for a type: full-text matches when a search term was given,
// relation hits when relatedTo was given. Both given means both must
// hold, so the intersection is returned. nil means unconstrained.
func (c *candidateSet) recallSet(entryType domain.EntryType, hasSearch, hasRelated bool) map[string]struct{} {
	if c == nil {
		return nil
	}
	switch {
	case hasSearch && hasRelated:
		fts := c.ftsIDs[entryType]
		rel := c.relatedIDs[entryType]
		out := make(map[string]struct{})
		for id := range fts {
			if _, ok := rel[id]; ok {
				out[id] = struct{}{}
			}
		}
		return out
	case hasSearch:
		if ids, ok := c.ftsIDs[entryType]; ok {
			return ids
		}
		return map[string]struct{}{}
	case hasRelated:
		if ids, ok := c.relatedIDs[entryType]; ok {
			return ids
		}
		return map[string]struct{}{}
	default:
		return nil
	}
}

// gatherCandidates runs the candidate index stage. It is skipped
// entirely when the request carries no search, semantic, or relation
// signal.
func (s *QueryService) gatherCandidates(ctx context.Context, st queryState) (queryState, error) {
	req := st.req
	if req.Search == "" && req.SemanticSearch == "" && req.RelatedTo == nil {
		return st, nil
	}

	cands := newCandidateSet()
	types := requestedTypes(req)

	if req.Search != "" {
		for _, entryType := range types {
			ids, err := s.search.SearchEntryIDs(ctx, entryType, req.Search, st.chain)
			if err != nil {
				return st, domain.NewStorageError(entryType, req.Scope, err)
			}
			if len(ids) > 0 {
				cands.ftsIDs[entryType] = ids
			}
		}
	}

	if req.SemanticSearch != "" {
		if s.embedding == nil {
			return st, domain.NewDomainError(domain.ErrCodeInvalidOperation, "semantic search requested but no embedding client is configured")
		}
		vector, err := s.embedding.GenerateEmbedding(ctx, req.SemanticSearch)
		if err != nil {
			return st, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to embed query", err)
		}

		k := st.page.Limit * semanticCandidateMultiplier
		hits, err := s.vectors.SearchSimilar(ctx, vector, types, k)
		if err != nil {
			return st, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "vector search failed", err)
		}
		for _, hit := range hits {
			cands.semantic[hit.ID] = semanticScore{entryType: hit.Type, score: hit.Similarity}
		}
	}

	if req.RelatedTo != nil {
		related, err := s.relations.RelatedIDs(ctx, req.RelatedTo.ID)
		if err != nil {
			return st, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "relation lookup failed", err)
		}
		for _, rel := range related {
			ids, ok := cands.relatedIDs[rel.Type]
			if !ok {
				ids = make(map[string]struct{})
				cands.relatedIDs[rel.Type] = ids
			}
			ids[rel.ID] = struct{}{}
		}
	}

	next := st
	next.candidates = cands
	return next, nil
}
