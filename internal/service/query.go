package service

import (
	"context"
	"time"

	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/pagination"
	"github.com/stratumhq/stratum/internal/telemetry"
)

// RelatedRef points the query at entries related to a given entry.
type RelatedRef struct {
	ID   string
	Type domain.EntryType
}

// PriorityRange filters guidelines to an inclusive priority window.
type PriorityRange struct {
	Min int
	Max int
}

// TimeRange is an inclusive interval used for validDuring queries.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// QueryRequest carries every filter and signal a retrieval call can use.
// It is constructed per call and never shared across requests.
type QueryRequest struct {
	Types           []domain.EntryType
	Scope           domain.ScopeRef
	Inherit         bool
	Search          string
	SemanticSearch  string
	RelatedTo       *RelatedRef
	Category        string
	Priority        *PriorityRange
	Level           string
	TagsRequire     []string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	UpdatedAfter    *time.Time
	UpdatedBefore   *time.Time
	CreatedBy       string
	IncludeInactive bool
	AtTime          *time.Time
	ValidDuring     *TimeRange
	Limit           int
	Offset          int
	WithVersions    bool
}

// QueryItem is one ranked row of a query result.
type QueryItem struct {
	Entry   *domain.Entry
	Score   float32
	Scored  bool
	Version *domain.VersionSet
}

// QueryResult is the ranked, paginated page plus pagination metadata.
type QueryResult struct {
	Results       []*QueryItem
	ReturnedCount int
	HasMore       bool
}

// queryState is the record threaded through the pipeline stages. Each
// stage consumes the previous state and returns a new one with its own
// fields filled in; nothing mutates a state another stage still holds.
type queryState struct {
	req        *QueryRequest
	page       pagination.Page
	chain      []domain.ScopeRef
	candidates *candidateSet
	fetched    map[domain.EntryType][]*domain.Entry
	truncated  bool
	versions   map[string]*domain.VersionSet
	result     *QueryResult
}

type stageFunc func(ctx context.Context, st queryState) (queryState, error)

// QueryService runs the retrieval pipeline: scope resolution, candidate
// gathering, bounded fetch, version attachment, ranking and pagination.
type QueryService struct {
	scopes    ScopeStore
	entries   EntryStore
	search    SearchStore
	vectors   VectorStore
	relations RelationStore
	versions  VersionStore
	embedding EmbeddingClient
}

// NewQueryService creates a QueryService. The embedding client may be
// nil, in which case semantic search requests fail validation.
func NewQueryService(
	scopes ScopeStore,
	entries EntryStore,
	search SearchStore,
	vectors VectorStore,
	relations RelationStore,
	versions VersionStore,
	embedding EmbeddingClient,
) *QueryService {
	return &QueryService{
		scopes:    scopes,
		entries:   entries,
		search:    search,
		vectors:   vectors,
		relations: relations,
		versions:  versions,
		embedding: embedding,
	}
}

// Query executes one retrieval call end to end.
func (s *QueryService) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Query", telemetry.SpanAttributes{
		ScopeType: string(req.Scope.Type),
		ScopeID:   req.Scope.ID,
		Operation: "query",
	})
	defer span.End()

	if err := validateQueryRequest(req); err != nil {
		span.SetError(err)
		return nil, err
	}

	st := queryState{
		req:  req,
		page: pagination.Page{Limit: req.Limit, Offset: req.Offset}.Normalize(),
	}

	stages := []stageFunc{
		s.resolveScopeChain,
		s.gatherCandidates,
		s.fetchEntries,
		s.loadVersions,
		s.rankAndPaginate,
	}

	var err error
	for _, stage := range stages {
		st, err = stage(ctx, st)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	return st.result, nil
}

// validateQueryRequest rejects malformed parameters before any storage
// access. Unknown category/level values are deliberately NOT rejected:
// they degrade to empty-set filters so newer clients keep working
// against older deployments.
func validateQueryRequest(req *QueryRequest) error {
	if err := domain.ValidateScopeRef(req.Scope); err != nil {
		if _, ok := err.(*domain.DomainError); ok {
			return err
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid scope", err)
	}

	for _, t := range req.Types {
		if !domain.IsValidEntryType(t) {
			return domain.ErrInvalidEntryType
		}
	}

	if req.Priority != nil && req.Priority.Min > req.Priority.Max {
		return domain.ErrInvalidPriorityRange
	}

	if req.ValidDuring != nil && req.ValidDuring.Start.After(req.ValidDuring.End) {
		return domain.ErrInvalidTimeRange
	}

	if req.Limit < 0 {
		return domain.ErrInvalidLimit
	}

	if req.Offset < 0 {
		return domain.ErrInvalidOffset
	}

	if req.RelatedTo != nil {
		if req.RelatedTo.ID == "" {
			return domain.NewDomainError(domain.ErrCodeValidation, "relatedTo requires an entry id")
		}
		if !domain.IsValidEntryType(req.RelatedTo.Type) {
			return domain.ErrInvalidEntryType
		}
	}

	return nil
}

// requestedTypes returns the entry types the request targets, defaulting
// to all four in stable order when none are given.
func requestedTypes(req *QueryRequest) []domain.EntryType {
	if len(req.Types) == 0 {
		return domain.AllEntryTypes
	}
	seen := make(map[domain.EntryType]bool, len(req.Types))
	types := make([]domain.EntryType, 0, len(req.Types))
	for _, t := range domain.AllEntryTypes {
		for _, want := range req.Types {
			if t == want && !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types
}
