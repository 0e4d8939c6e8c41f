package service

import (
	"context"
	"time"

	"github.com/stratumhq/stratum/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Headroom multipliers on the page limit. Over-fetching wastes I/O;
// under-fetching produces a false "no more results" at the pagination
// boundary. The tiers pick the strongest selectivity signal available:
// a small, precise candidate set needs almost no slack, tag filters
// discard moderately, and with no signal up to half the fetch may be
// discarded by filters that are not pushed into the query.
const (
	headroomDefault    = 2.0
	headroomTagFilter  = 1.5
	headroomCandidates = 1.2

	semanticCandidateMultiplier = 4
)

// EntryFilter carries the structural predicates that are pushed down
// into the per-scope read. Tag requirements and candidate-set recall
// filters are applied in memory after the read.
type EntryFilter struct {
	Category        string
	PriorityMin     *int
	PriorityMax     *int
	Level           string
	CreatedBy       string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	UpdatedAfter    *time.Time
	UpdatedBefore   *time.Time
	IncludeInactive bool
}

// EntryStore defines the relational read interface consumed by the
// fetch stage. ListByScope is the structural-filter path; ListValidAt
// and ListValidDuring are the raw-predicate escape hatch for temporal
// overlap queries, which the structural path cannot express.
type EntryStore interface {
	ListByScope(ctx context.Context, entryType domain.EntryType, scope domain.ScopeRef, filter EntryFilter, limit int) ([]*domain.Entry, error)
	ListValidAt(ctx context.Context, scope domain.ScopeRef, filter EntryFilter, at time.Time, limit int) ([]*domain.Entry, error)
	ListValidDuring(ctx context.Context, scope domain.ScopeRef, filter EntryFilter, start, end time.Time, limit int) ([]*domain.Entry, error)
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
}

// headroomFor selects the over-fetch multiplier for one type. Fixed
// heuristic, not adaptive.
func headroomFor(req *QueryRequest, cands *candidateSet, entryType domain.EntryType, limit int) float64 {
	if cands != nil {
		recall := cands.recallSet(entryType, req.Search != "", req.RelatedTo != nil)
		if recall != nil && len(recall) > 0 && len(recall) < limit {
			return headroomCandidates
		}
	}
	if len(req.TagsRequire) > 0 {
		return headroomTagFilter
	}
	return headroomDefault
}

// fetchEntries runs the per-type bounded, filtered, scope-ordered fetch.
// Types are independent and fan out in parallel; the per-scope loop
// within a type stays sequential because the soft-cap decision at scope
// N depends on the count accumulated through scope N-1.
func (s *QueryService) fetchEntries(ctx context.Context, st queryState) (queryState, error) {
	req := st.req
	types := requestedTypes(req)
	filter := entryFilterFrom(req)

	type typeResult struct {
		entryType domain.EntryType
		entries   []*domain.Entry
		truncated bool
	}

	results := make([]typeResult, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, entryType := range types {
		g.Go(func() error {
			entries, truncated, err := s.fetchType(gctx, st, entryType, filter)
			if err != nil {
				return err
			}
			results[i] = typeResult{entryType: entryType, entries: entries, truncated: truncated}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}

	next := st
	next.fetched = make(map[domain.EntryType][]*domain.Entry, len(types))
	for _, res := range results {
		next.fetched[res.entryType] = res.entries
		if res.truncated {
			next.truncated = true
		}
	}
	return next, nil
}

// fetchType accumulates rows for one entry type across the scope chain,
// stopping once the soft cap is reached. Later, less specific scopes are
// skipped then; chain order already encodes preference, so nothing the
// page needs is lost. Returns whether the fetch was truncated by the cap.
func (s *QueryService) fetchType(ctx context.Context, st queryState, entryType domain.EntryType, filter EntryFilter) ([]*domain.Entry, bool, error) {
	req := st.req
	headroom := headroomFor(req, st.candidates, entryType, st.page.Limit)
	softCap := int(float64(st.page.Limit) * headroom)
	if softCap < 1 {
		softCap = 1
	}

	recallIDs := st.candidates.recallSet(entryType, req.Search != "", req.RelatedTo != nil)

	var accumulated []*domain.Entry
	seen := make(map[string]struct{})
	truncated := false

	for _, scope := range st.chain {
		if len(accumulated) >= softCap {
			truncated = true
			break
		}
		remaining := softCap - len(accumulated)

		rows, err := s.fetchScope(ctx, entryType, scope, filter, req, remaining)
		if err != nil {
			return nil, false, domain.NewStorageError(entryType, scope, err)
		}

		for _, row := range rows {
			if _, dup := seen[row.ID]; dup {
				continue
			}
			if recallIDs != nil {
				if _, ok := recallIDs[row.ID]; !ok {
					continue
				}
			}
			if !hasRequiredTags(row, req.TagsRequire) {
				continue
			}
			seen[row.ID] = struct{}{}
			accumulated = append(accumulated, row)
		}
	}
	// A full budget means rows may remain beyond the cap even when the
	// last scope read was the one that filled it.
	if len(accumulated) >= softCap {
		truncated = true
	}

	// Semantic-only backfill: meaning-only matches that the relational
	// pass never saw must still be surfaced, one bounded single-id
	// fetch each.
	if st.candidates != nil && len(st.candidates.semantic) > 0 {
		entries, more, err := s.backfillSemantic(ctx, st, entryType, accumulated, seen, softCap)
		if err != nil {
			return nil, false, err
		}
		accumulated = entries
		truncated = truncated || more
	}

	return accumulated, truncated, nil
}

// fetchScope issues one filtered, ordered, capped read for a single
// scope, routing knowledge temporal queries through the raw-predicate
// path.
func (s *QueryService) fetchScope(ctx context.Context, entryType domain.EntryType, scope domain.ScopeRef, filter EntryFilter, req *QueryRequest, limit int) ([]*domain.Entry, error) {
	if entryType == domain.EntryTypeKnowledge {
		if req.AtTime != nil {
			return s.entries.ListValidAt(ctx, scope, filter, *req.AtTime, limit)
		}
		if req.ValidDuring != nil {
			return s.entries.ListValidDuring(ctx, scope, filter, req.ValidDuring.Start, req.ValidDuring.End, limit)
		}
	}
	return s.entries.ListByScope(ctx, entryType, scope, filter, limit)
}

// backfillSemantic fetches semantic hits of this type that the
// relational pass missed, bounded by the remaining headroom budget.
func (s *QueryService) backfillSemantic(ctx context.Context, st queryState, entryType domain.EntryType, accumulated []*domain.Entry, seen map[string]struct{}, softCap int) ([]*domain.Entry, bool, error) {
	truncated := false
	for id, hit := range st.candidates.semantic {
		if hit.entryType != entryType {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if len(accumulated) >= softCap {
			truncated = true
			break
		}

		entry, err := s.entries.GetByID(ctx, id)
		if err != nil {
			if domainErrCode(err) == domain.ErrCodeNotFound {
				// The vector index can lag behind a deactivation.
				continue
			}
			return nil, false, domain.NewStorageError(entryType, st.req.Scope, err)
		}
		if !entry.IsActive && !st.req.IncludeInactive {
			continue
		}
		seen[id] = struct{}{}
		accumulated = append(accumulated, entry)
	}
	return accumulated, truncated, nil
}

func entryFilterFrom(req *QueryRequest) EntryFilter {
	filter := EntryFilter{
		Category:        req.Category,
		Level:           req.Level,
		CreatedBy:       req.CreatedBy,
		CreatedAfter:    req.CreatedAfter,
		CreatedBefore:   req.CreatedBefore,
		UpdatedAfter:    req.UpdatedAfter,
		UpdatedBefore:   req.UpdatedBefore,
		IncludeInactive: req.IncludeInactive,
	}
	if req.Priority != nil {
		min, max := req.Priority.Min, req.Priority.Max
		filter.PriorityMin = &min
		filter.PriorityMax = &max
	}
	return filter
}

func hasRequiredTags(entry *domain.Entry, required []string) bool {
	if len(required) == 0 {
		return true
	}
	tags := make(map[string]struct{}, len(entry.Tags))
	for _, tag := range entry.Tags {
		tags[tag] = struct{}{}
	}
	for _, want := range required {
		if _, ok := tags[want]; !ok {
			return false
		}
	}
	return true
}

func domainErrCode(err error) string {
	if derr, ok := err.(*domain.DomainError); ok {
		return derr.Code
	}
	return ""
}
