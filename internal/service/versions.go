package service

import (
	"context"

	"github.com/stratumhq/stratum/internal/domain"
	"golang.org/x/sync/errgroup"
)

// VersionedEntryTypes are the entry types that carry version history.
// Tools are replaced wholesale on change and keep no trail.
var VersionedEntryTypes = []domain.EntryType{
	domain.EntryTypeGuideline,
	domain.EntryTypeKnowledge,
	domain.EntryTypeExperience,
}

// VersionStore defines the batched version read interface
type VersionStore interface {
	// BatchVersions returns, for each requested id that has version
	// rows, the current snapshot (max version_num) and the full history
	// sorted descending by version_num, in a single read.
	BatchVersions(ctx context.Context, entryType domain.EntryType, ids []string) (map[string]*domain.VersionSet, error)
}

// LoadVersions batch-attaches version snapshots for up to one id set
// per versioned type. Exactly one read is issued per non-empty set;
// duplicate ids collapse before querying; unknown ids are silently
// absent from the output, never a null placeholder. Empty inputs yield
// empty maps.
func LoadVersions(ctx context.Context, store VersionStore, idsByType map[domain.EntryType][]string) (map[domain.EntryType]map[string]*domain.VersionSet, error) {
	// Goroutines write into their own slot; the map is assembled only
	// after Wait, so no two goroutines ever touch shared state.
	results := make([]map[string]*domain.VersionSet, len(VersionedEntryTypes))

	g, gctx := errgroup.WithContext(ctx)
	for i, entryType := range VersionedEntryTypes {
		ids := dedupeIDs(idsByType[entryType])
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			sets, err := store.BatchVersions(gctx, entryType, ids)
			if err != nil {
				return domain.NewDomainErrorWithCause(domain.ErrCodeStorage,
					"version load failed for "+string(entryType)+" entries", err)
			}
			results[i] = sets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.EntryType]map[string]*domain.VersionSet, len(VersionedEntryTypes))
	for i, entryType := range VersionedEntryTypes {
		if results[i] != nil {
			out[entryType] = results[i]
		} else {
			out[entryType] = map[string]*domain.VersionSet{}
		}
	}
	return out, nil
}

// EntryVersions returns the version history for a single entry, newest
// first. Tool entries carry no history and are rejected.
func (s *QueryService) EntryVersions(ctx context.Context, entryID string) (*domain.VersionSet, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if !isVersionedType(entry.Type) {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation,
			"entries of type "+string(entry.Type)+" have no version history")
	}

	sets, err := s.versions.BatchVersions(ctx, entry.Type, []string{entryID})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage,
			"version load failed for "+string(entry.Type)+" entries", err)
	}

	set, ok := sets[entryID]
	if !ok {
		return &domain.VersionSet{}, nil
	}
	return set, nil
}

func isVersionedType(entryType domain.EntryType) bool {
	for _, t := range VersionedEntryTypes {
		if t == entryType {
			return true
		}
	}
	return false
}

// loadVersions is the pipeline stage: only active when the request asks
// for versions, and only for ids the fetch stage actually produced.
func (s *QueryService) loadVersions(ctx context.Context, st queryState) (queryState, error) {
	if !st.req.WithVersions {
		return st, nil
	}

	idsByType := make(map[domain.EntryType][]string)
	for entryType, entries := range st.fetched {
		for _, entry := range entries {
			idsByType[entryType] = append(idsByType[entryType], entry.ID)
		}
	}

	byType, err := LoadVersions(ctx, s.versions, idsByType)
	if err != nil {
		return st, err
	}

	flat := make(map[string]*domain.VersionSet)
	for _, sets := range byType {
		for id, set := range sets {
			flat[id] = set
		}
	}

	next := st
	next.versions = flat
	return next, nil
}

func dedupeIDs(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
