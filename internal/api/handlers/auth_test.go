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
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

func TestAuthHandler_CreateAPIKey_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("CreateAPIKey", mock.Anything, "ci-agent").
		Return("stm_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", nil)

	body := `{"name":"ci-agent"}`
	req := httptest.NewRequest(http.MethodPost, "/apikeys", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ci-agent", data["name"])
	assert.Contains(t, data["token"], "stm_")
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_CreateAPIKey_MissingName(t *testing.T) {
	handler := NewAuthHandler(new(MockAuthService))

	req := httptest.NewRequest(http.MethodPost, "/apikeys", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestAuthHandler_ListAPIKeys(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	revoked := time.Now().UTC()
	keys := []*domain.APIKey{
		{ID: "key-1", Name: "ci-agent", CreatedAt: time.Now().UTC()},
		{ID: "key-2", Name: "old-agent", CreatedAt: time.Now().UTC(), RevokedAt: &revoked},
	}
	mockSvc.On("ListAPIKeys", mock.Anything).Return(keys, nil)

	req := httptest.NewRequest(http.MethodGet, "/apikeys", nil)
	w := httptest.NewRecorder()

	handler.ListAPIKeys(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].([]interface{})
	require.Len(t, data, 2)
	second := data[1].(map[string]interface{})
	assert.NotEmpty(t, second["revokedAt"])
	// The hash never leaves the server.
	_, present := second["keyHash"]
	assert.False(t, present)
}

func TestAuthHandler_RevokeAPIKey_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("RevokeAPIKey", mock.Anything, "key-1").Return(nil)

	req := requestWithURLParam(http.MethodDelete, "/apikeys/key-1", "id", "key-1", nil)
	w := httptest.NewRecorder()

	handler.RevokeAPIKey(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_RevokeAPIKey_NotFound(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("RevokeAPIKey", mock.Anything, "missing").Return(domain.ErrAPIKeyNotFound)

	req := requestWithURLParam(http.MethodDelete, "/apikeys/missing", "id", "missing", nil)
	w := httptest.NewRecorder()

	handler.RevokeAPIKey(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
