package service

import (
	"context"
	"time"

	"github.com/stratumhq/stratum/internal/domain"
)

// ScopeAdminStore defines the persistence interface for scope administration
type ScopeAdminStore interface {
	Create(ctx context.Context, scope *domain.Scope) error
	GetByID(ctx context.Context, id string) (*domain.Scope, error)
	List(ctx context.Context) ([]*domain.Scope, error)
	ListByType(ctx context.Context, scopeType domain.ScopeType) ([]*domain.Scope, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Scope, error)
	Delete(ctx context.Context, id string) error
}

// ScopeService manages the scope hierarchy: orgs at the top, projects
// under orgs, sessions under projects. The global level has no row and
// cannot be created or deleted.
type ScopeService struct {
	scopes  ScopeAdminStore
	uuidGen UUIDGenerator
}

// NewScopeService creates a new ScopeService instance
func NewScopeService(scopes ScopeAdminStore) *ScopeService {
	return &ScopeService{
		scopes:  scopes,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewScopeServiceWithUUIDGen creates a ScopeService with a custom UUID generator (for testing)
func NewScopeServiceWithUUIDGen(scopes ScopeAdminStore, uuidGen UUIDGenerator) *ScopeService {
	return &ScopeService{
		scopes:  scopes,
		uuidGen: uuidGen,
	}
}

// CreateScopeInput represents the input for creating a scope
type CreateScopeInput struct {
	Type     domain.ScopeType
	Name     string
	ParentID string
}

// CreateScope creates a scope after verifying its parent linkage. A
// project must point at an existing org, a session at an existing
// project; orgs carry no parent.
func (s *ScopeService) CreateScope(ctx context.Context, input CreateScopeInput) (*domain.Scope, error) {
	scope := domain.NewScope(s.uuidGen.NewString(), input.Type, input.Name, input.ParentID, time.Now().UTC())

	if err := domain.ValidateScope(scope); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid scope", err)
	}

	if scope.ParentID != "" {
		parent, err := s.scopes.GetByID(ctx, scope.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Type != scope.Type.ParentType() {
			return nil, domain.NewDomainError(domain.ErrCodeValidation,
				"parent of a "+string(scope.Type)+" scope must be a "+string(scope.Type.ParentType()))
		}
	}

	if err := s.scopes.Create(ctx, scope); err != nil {
		return nil, err
	}

	return scope, nil
}

// GetScope retrieves a scope by ID
func (s *ScopeService) GetScope(ctx context.Context, id string) (*domain.Scope, error) {
	return s.scopes.GetByID(ctx, id)
}

// ListScopes lists all scopes, or only those of the given type when one
// is provided.
func (s *ScopeService) ListScopes(ctx context.Context, scopeType domain.ScopeType) ([]*domain.Scope, error) {
	if scopeType == "" {
		return s.scopes.List(ctx)
	}
	if !domain.IsValidScopeType(scopeType) || scopeType == domain.ScopeTypeGlobal {
		return nil, domain.ErrInvalidScopeType
	}
	return s.scopes.ListByType(ctx, scopeType)
}

// ListChildren lists the scopes directly under the given parent
func (s *ScopeService) ListChildren(ctx context.Context, parentID string) ([]*domain.Scope, error) {
	if _, err := s.scopes.GetByID(ctx, parentID); err != nil {
		return nil, err
	}
	return s.scopes.ListChildren(ctx, parentID)
}

// DeleteScope deletes a scope. Child scopes cascade at the storage
// layer; entries under the scope remain addressable by ID only.
func (s *ScopeService) DeleteScope(ctx context.Context, id string) error {
	if _, err := s.scopes.GetByID(ctx, id); err != nil {
		return err
	}
	return s.scopes.Delete(ctx, id)
}
