package service

import (
	"context"

	"github.com/stratumhq/stratum/internal/domain"
)

// ScopeStore defines the repository interface for scope resolution
type ScopeStore interface {
	GetByID(ctx context.Context, id string) (*domain.Scope, error)
}

// ResolveScopeChain expands a scope reference into its ordered ancestor
// chain, most specific first, terminating at global. With inherit=false
// the chain is just the requested scope. A non-global scope id that does
// not resolve to an existing scope row fails with NotFound rather than
// silently widening to global.
func ResolveScopeChain(ctx context.Context, scopes ScopeStore, ref domain.ScopeRef, inherit bool) ([]domain.ScopeRef, error) {
	if ref.Type == domain.ScopeTypeGlobal {
		return []domain.ScopeRef{{Type: domain.ScopeTypeGlobal}}, nil
	}

	if !inherit {
		// Still verify the scope exists so a typo'd id errors instead
		// of returning an empty result.
		if _, err := scopes.GetByID(ctx, ref.ID); err != nil {
			return nil, err
		}
		return []domain.ScopeRef{ref}, nil
	}

	chain := make([]domain.ScopeRef, 0, 4)
	current := ref
	for current.Type != domain.ScopeTypeGlobal {
		scope, err := scopes.GetByID(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if scope.Type != current.Type {
			return nil, domain.NewDomainError(domain.ErrCodeNotFound,
				"scope "+current.ID+" is not a "+string(current.Type)+" scope")
		}

		chain = append(chain, current)
		current = domain.ScopeRef{Type: scope.Type.ParentType(), ID: scope.ParentID}
	}

	chain = append(chain, domain.ScopeRef{Type: domain.ScopeTypeGlobal})
	return chain, nil
}

// resolveScopeChain is the pipeline stage wrapper around ResolveScopeChain.
func (s *QueryService) resolveScopeChain(ctx context.Context, st queryState) (queryState, error) {
	chain, err := ResolveScopeChain(ctx, s.scopes, st.req.Scope, st.req.Inherit)
	if err != nil {
		return st, err
	}

	next := st
	next.chain = chain
	return next, nil
}
