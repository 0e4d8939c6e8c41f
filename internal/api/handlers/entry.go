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

type EntryService interface {
	Create(ctx context.Context, input service.CreateEntryInput) (*domain.Entry, error)
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	Update(ctx context.Context, input service.UpdateEntryInput) (*domain.Entry, error)
	Deactivate(ctx context.Context, id string) error
	Relate(ctx context.Context, fromID, toID, relType string) error
}

// VersionReader serves the version history endpoint.
type VersionReader interface {
	EntryVersions(ctx context.Context, entryID string) (*domain.VersionSet, error)
}

type EntryHandler struct {
	svc      EntryService
	versions VersionReader
}

func NewEntryHandler(svc EntryService, versions VersionReader) *EntryHandler {
	return &EntryHandler{svc: svc, versions: versions}
}

type CreateEntryRequest struct {
	Type       string     `json:"type"`
	ScopeType  string     `json:"scopeType"`
	ScopeID    string     `json:"scopeId"`
	Category   string     `json:"category"`
	Name       string     `json:"name"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	Priority   int        `json:"priority"`
	Level      string     `json:"level"`
	ValidFrom  *time.Time `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil"`
	CreatedBy  string     `json:"createdBy"`
}

type UpdateEntryRequest struct {
	Content      string     `json:"content"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	Priority     int        `json:"priority"`
	Level        string     `json:"level"`
	ValidFrom    *time.Time `json:"validFrom"`
	ValidUntil   *time.Time `json:"validUntil"`
	ChangeReason string     `json:"changeReason"`
}

type RelateEntryRequest struct {
	ToID    string `json:"toId"`
	RelType string `json:"relType"`
}

type EntryResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	ScopeType  string     `json:"scopeType"`
	ScopeID    string     `json:"scopeId,omitempty"`
	Category   string     `json:"category,omitempty"`
	Name       string     `json:"name"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags,omitempty"`
	Priority   int        `json:"priority,omitempty"`
	Level      string     `json:"level,omitempty"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type VersionResponse struct {
	ID           string    `json:"id"`
	EntryID      string    `json:"entryId"`
	VersionNum   int64     `json:"versionNum"`
	Content      string    `json:"content"`
	ChangeReason string    `json:"changeReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type VersionSetResponse struct {
	Current *VersionResponse   `json:"current,omitempty"`
	History []*VersionResponse `json:"history"`
}

func entryToResponse(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:         e.ID,
		Type:       string(e.Type),
		ScopeType:  string(e.ScopeType),
		ScopeID:    e.ScopeID,
		Category:   e.Category,
		Name:       e.Name,
		Content:    e.Content,
		Tags:       e.Tags,
		Priority:   e.Priority,
		Level:      e.Level,
		ValidFrom:  e.ValidFrom,
		ValidUntil: e.ValidUntil,
		IsActive:   e.IsActive,
		CreatedBy:  e.CreatedBy,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func versionToResponse(v *domain.EntryVersion) *VersionResponse {
	return &VersionResponse{
		ID:           v.ID,
		EntryID:      v.EntryID,
		VersionNum:   v.VersionNum,
		Content:      v.Content,
		ChangeReason: v.ChangeReason,
		CreatedAt:    v.CreatedAt,
	}
}

func versionSetToResponse(set *domain.VersionSet) *VersionSetResponse {
	out := &VersionSetResponse{History: []*VersionResponse{}}
	if set.Current != nil {
		out.Current = versionToResponse(set.Current)
	}
	for _, v := range set.History {
		out.History = append(out.History, versionToResponse(v))
	}
	return out
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
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
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.CreateEntryInput{
		Type: domain.EntryType(req.Type),
		Scope: domain.ScopeRef{
			Type: domain.ScopeType(req.ScopeType),
			ID:   req.ScopeID,
		},
		Category:   req.Category,
		Name:       req.Name,
		Content:    req.Content,
		Tags:       req.Tags,
		Priority:   req.Priority,
		Level:      req.Level,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		CreatedBy:  req.CreatedBy,
	}

	entry, err := h.svc.Create(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryToResponse(entry))
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.UpdateEntryInput{
		EntryID:      id,
		Content:      req.Content,
		Category:     req.Category,
		Tags:         req.Tags,
		Priority:     req.Priority,
		Level:        req.Level,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		ChangeReason: req.ChangeReason,
	}

	entry, err := h.svc.Update(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

// Deactivate handles DELETE on an entry. Entries are never hard
// deleted; the row stays for history and auditing.
func (h *EntryHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *EntryHandler) Versions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	set, err := h.versions.EntryVersions(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, versionSetToResponse(set))
}

func (h *EntryHandler) Relate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req RelateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ToID == "" {
		api.Error(w, http.StatusBadRequest, "toId is required")
		return
	}
	if req.RelType == "" {
		api.Error(w, http.StatusBadRequest, "relType is required")
		return
	}

	if err := h.svc.Relate(r.Context(), id, req.ToID, req.RelType); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
