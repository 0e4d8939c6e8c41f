package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/service"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, req *service.QueryRequest) (*service.QueryResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryResult), args.Error(1)
}

func TestQueryHandler_Query_Success(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	entry := newTestEntry()
	result := &service.QueryResult{
		Results: []*service.QueryItem{
			{Entry: entry, Score: 0.92, Scored: true},
		},
		ReturnedCount: 1,
		HasMore:       true,
	}

	mockSvc.On("Query", mock.Anything, mock.MatchedBy(func(req *service.QueryRequest) bool {
		return req.Scope.Type == domain.ScopeTypeProject &&
			req.Scope.ID == "proj-1" &&
			req.Inherit &&
			req.Search == "pooling" &&
			req.Limit == 10
	})).Return(result, nil)

	body := `{"types":["guideline"],"scopeType":"project","scopeId":"proj-1","search":"pooling","limit":10}`
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp QueryResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "e-123", resp.Results[0].ID)
	require.NotNil(t, resp.Results[0].Score)
	assert.InDelta(t, 0.92, float64(*resp.Results[0].Score), 1e-6)
	assert.Equal(t, 1, resp.Meta.ReturnedCount)
	assert.True(t, resp.Meta.HasMore)
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_Query_InheritDefaultsTrue(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Query", mock.Anything, mock.MatchedBy(func(req *service.QueryRequest) bool {
		return req.Inherit
	})).Return(&service.QueryResult{Results: []*service.QueryItem{}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(`{"scopeType":"global"}`)))
	w := httptest.NewRecorder()
	handler.Query(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// An explicit false must survive the mapping.
	mockSvc.On("Query", mock.Anything, mock.MatchedBy(func(req *service.QueryRequest) bool {
		return !req.Inherit
	})).Return(&service.QueryResult{Results: []*service.QueryItem{}}, nil).Once()

	req = httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(`{"scopeType":"global","inherit":false}`)))
	w = httptest.NewRecorder()
	handler.Query(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_Query_FullFilterMapping(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockSvc.On("Query", mock.Anything, mock.MatchedBy(func(req *service.QueryRequest) bool {
		return req.RelatedTo != nil && req.RelatedTo.ID == "e-9" && req.RelatedTo.Type == domain.EntryTypeTool &&
			req.Priority != nil && req.Priority.Min == 3 && req.Priority.Max == 8 &&
			len(req.TagsRequire) == 2 &&
			req.AtTime != nil && req.AtTime.Equal(at) &&
			req.WithVersions
	})).Return(&service.QueryResult{Results: []*service.QueryItem{}}, nil)

	body := `{
		"scopeType": "global",
		"relatedTo": {"id": "e-9", "type": "tool"},
		"priority": {"min": 3, "max": 8},
		"tags": {"require": ["go", "postgres"]},
		"atTime": "2026-03-01T12:00:00Z",
		"withVersions": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_Query_InvalidJSON(t *testing.T) {
	handler := NewQueryHandler(new(MockQueryService))

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestQueryHandler_Query_ValidationError(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Query", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidPriorityRange)

	body := `{"scopeType":"global","priority":{"min":9,"max":2}}`
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryHandler_Query_ScopeNotFound(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Query", mock.Anything, mock.Anything).Return(nil, domain.ErrScopeNotFound)

	body := `{"scopeType":"session","scopeId":"dangling"}`
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryHandler_Query_UnscoredItemsOmitScore(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	result := &service.QueryResult{
		Results:       []*service.QueryItem{{Entry: newTestEntry(), Scored: false}},
		ReturnedCount: 1,
	}
	mockSvc.On("Query", mock.Anything, mock.Anything).Return(result, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(`{"scopeType":"global"}`)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var raw map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &raw)
	require.NoError(t, err)
	results := raw["results"].([]interface{})
	first := results[0].(map[string]interface{})
	_, present := first["score"]
	assert.False(t, present)
}
