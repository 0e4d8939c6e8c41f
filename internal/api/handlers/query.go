package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/stratumhq/stratum/internal/api"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/service"
)

type QueryService interface {
	Query(ctx context.Context, req *service.QueryRequest) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type RelatedToRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type PriorityRequest struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type TagsRequest struct {
	Require []string `json:"require"`
}

type TimeRangeRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type QueryRequest struct {
	Types           []string          `json:"types"`
	ScopeType       string            `json:"scopeType"`
	ScopeID         string            `json:"scopeId"`
	Inherit         *bool             `json:"inherit"`
	Search          string            `json:"search"`
	SemanticSearch  string            `json:"semanticSearch"`
	RelatedTo       *RelatedToRequest `json:"relatedTo"`
	Category        string            `json:"category"`
	Priority        *PriorityRequest  `json:"priority"`
	Level           string            `json:"level"`
	Tags            *TagsRequest      `json:"tags"`
	CreatedAfter    *time.Time        `json:"createdAfter"`
	CreatedBefore   *time.Time        `json:"createdBefore"`
	UpdatedAfter    *time.Time        `json:"updatedAfter"`
	UpdatedBefore   *time.Time        `json:"updatedBefore"`
	CreatedBy       string            `json:"createdBy"`
	IncludeInactive bool              `json:"includeInactive"`
	AtTime          *time.Time        `json:"atTime"`
	ValidDuring     *TimeRangeRequest `json:"validDuring"`
	Limit           int               `json:"limit"`
	Offset          int               `json:"offset"`
	WithVersions    bool              `json:"withVersions"`
}

type QueryResultItem struct {
	EntryResponse
	Score   *float32            `json:"score,omitempty"`
	Version *VersionSetResponse `json:"version,omitempty"`
}

type QueryMeta struct {
	ReturnedCount int  `json:"returnedCount"`
	HasMore       bool `json:"hasMore"`
}

type QueryResponse struct {
	Results []*QueryResultItem `json:"results"`
	Meta    QueryMeta          `json:"meta"`
}

// toServiceRequest maps the wire request onto the pipeline's request.
// Type and scope strings are passed through unparsed; the service
// validates them before any storage access.
func (req *QueryRequest) toServiceRequest() *service.QueryRequest {
	out := &service.QueryRequest{
		Scope: domain.ScopeRef{
			Type: domain.ScopeType(req.ScopeType),
			ID:   req.ScopeID,
		},
		Inherit:         true,
		Search:          req.Search,
		SemanticSearch:  req.SemanticSearch,
		Category:        req.Category,
		Level:           req.Level,
		CreatedAfter:    req.CreatedAfter,
		CreatedBefore:   req.CreatedBefore,
		UpdatedAfter:    req.UpdatedAfter,
		UpdatedBefore:   req.UpdatedBefore,
		CreatedBy:       req.CreatedBy,
		IncludeInactive: req.IncludeInactive,
		AtTime:          req.AtTime,
		Limit:           req.Limit,
		Offset:          req.Offset,
		WithVersions:    req.WithVersions,
	}

	if req.Inherit != nil {
		out.Inherit = *req.Inherit
	}

	for _, t := range req.Types {
		out.Types = append(out.Types, domain.EntryType(t))
	}

	if req.RelatedTo != nil {
		out.RelatedTo = &service.RelatedRef{
			ID:   req.RelatedTo.ID,
			Type: domain.EntryType(req.RelatedTo.Type),
		}
	}

	if req.Priority != nil {
		out.Priority = &service.PriorityRange{Min: req.Priority.Min, Max: req.Priority.Max}
	}

	if req.Tags != nil {
		out.TagsRequire = req.Tags.Require
	}

	if req.ValidDuring != nil {
		out.ValidDuring = &service.TimeRange{Start: req.ValidDuring.Start, End: req.ValidDuring.End}
	}

	return out
}

func queryResultToResponse(result *service.QueryResult) *QueryResponse {
	items := make([]*QueryResultItem, 0, len(result.Results))
	for _, item := range result.Results {
		out := &QueryResultItem{
			EntryResponse: *entryToResponse(item.Entry),
		}
		if item.Scored {
			score := item.Score
			out.Score = &score
		}
		if item.Version != nil {
			out.Version = versionSetToResponse(item.Version)
		}
		items = append(items, out)
	}

	return &QueryResponse{
		Results: items,
		Meta: QueryMeta{
			ReturnedCount: result.ReturnedCount,
			HasMore:       result.HasMore,
		},
	}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Query(r.Context(), req.toServiceRequest())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, queryResultToResponse(result))
}
