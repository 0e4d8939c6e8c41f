package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stratumhq/stratum/internal/api"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/service"
)

type ScopeService interface {
	CreateScope(ctx context.Context, input service.CreateScopeInput) (*domain.Scope, error)
	GetScope(ctx context.Context, id string) (*domain.Scope, error)
	ListScopes(ctx context.Context, scopeType domain.ScopeType) ([]*domain.Scope, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Scope, error)
	DeleteScope(ctx context.Context, id string) error
}

type ScopeHandler struct {
	svc ScopeService
}

func NewScopeHandler(svc ScopeService) *ScopeHandler {
	return &ScopeHandler{svc: svc}
}

type CreateScopeRequest struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

type ScopeResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func scopeToResponse(s *domain.Scope) *ScopeResponse {
	return &ScopeResponse{
		ID:        s.ID,
		Type:      string(s.Type),
		Name:      s.Name,
		ParentID:  s.ParentID,
		CreatedAt: s.CreatedAt,
	}
}

func scopesToResponse(scopes []*domain.Scope) []*ScopeResponse {
	out := make([]*ScopeResponse, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, scopeToResponse(s))
	}
	return out
}

func (h *ScopeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	scope, err := h.svc.CreateScope(r.Context(), service.CreateScopeInput{
		Type:     domain.ScopeType(req.Type),
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, scopeToResponse(scope))
}

func (h *ScopeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	scope, err := h.svc.GetScope(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, scopeToResponse(scope))
}

func (h *ScopeHandler) List(w http.ResponseWriter, r *http.Request) {
	scopeType := domain.ScopeType(r.URL.Query().Get("type"))

	scopes, err := h.svc.ListScopes(r.Context(), scopeType)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, scopesToResponse(scopes))
}

func (h *ScopeHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	scopes, err := h.svc.ListChildren(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, scopesToResponse(scopes))
}

func (h *ScopeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteScope(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
