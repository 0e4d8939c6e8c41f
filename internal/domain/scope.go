package domain

import (
	"fmt"
	"time"
)

// ScopeType represents the tenancy level a scope lives at
type ScopeType string

const (
	ScopeTypeGlobal  ScopeType = "global"
	ScopeTypeOrg     ScopeType = "org"
	ScopeTypeProject ScopeType = "project"
	ScopeTypeSession ScopeType = "session"
)

// Scope represents a tenancy boundary under which entries are stored.
// Session scopes point at a project, projects at an org. The global
// level has no scope row; it is addressed by an empty scope ID.
type Scope struct {
	ID        string
	Type      ScopeType
	Name      string
	ParentID  string // empty for org scopes
	CreatedAt time.Time
}

// ScopeRef identifies a single scope level in a query or a chain.
// ID is empty iff Type is global.
type ScopeRef struct {
	Type ScopeType
	ID   string
}

// NewScope creates a new Scope instance
func NewScope(id string, scopeType ScopeType, name, parentID string, createdAt time.Time) *Scope {
	return &Scope{
		ID:        id,
		Type:      scopeType,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: createdAt,
	}
}

// ParentType returns the next more general scope type, or global when
// there is no parent row to walk to.
func (t ScopeType) ParentType() ScopeType {
	switch t {
	case ScopeTypeSession:
		return ScopeTypeProject
	case ScopeTypeProject:
		return ScopeTypeOrg
	default:
		return ScopeTypeGlobal
	}
}

// ValidateScope validates a Scope instance
func ValidateScope(s *Scope) error {
	if s == nil {
		return fmt.Errorf("scope cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("scope ID is required")
	}

	if s.Name == "" {
		return fmt.Errorf("scope Name is required")
	}

	if !IsValidScopeType(s.Type) || s.Type == ScopeTypeGlobal {
		return fmt.Errorf("scope Type is invalid: %s", s.Type)
	}

	if s.Type != ScopeTypeOrg && s.ParentID == "" {
		return fmt.Errorf("scope of type %s requires a parent", s.Type)
	}

	if s.Type == ScopeTypeOrg && s.ParentID != "" {
		return fmt.Errorf("org scope cannot have a parent")
	}

	return nil
}

// ValidateScopeRef validates a ScopeRef used to address entries
func ValidateScopeRef(ref ScopeRef) error {
	if !IsValidScopeType(ref.Type) {
		return ErrInvalidScopeType
	}

	if ref.Type == ScopeTypeGlobal && ref.ID != "" {
		return fmt.Errorf("global scope cannot carry a scope ID")
	}

	if ref.Type != ScopeTypeGlobal && ref.ID == "" {
		return fmt.Errorf("scope ID is required for %s scope", ref.Type)
	}

	return nil
}

// IsValidScopeType checks if a ScopeType is valid
func IsValidScopeType(t ScopeType) bool {
	switch t {
	case ScopeTypeGlobal, ScopeTypeOrg, ScopeTypeProject, ScopeTypeSession:
		return true
	}
	return false
}
