package service

import (
	"context"
	"sort"
	"time"

	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/pagination"
)

// Ranking weights. Full-text match is a binary indicator, semantic
// similarity is already in [0,1], recency decays linearly over the
// window, and guideline priority is normalized to [0,1].
const (
	ftsWeight      = 0.85
	semanticWeight = 1.0
	priorityWeight = 0.15

	recencyWindowDays = 30
	recencyMaxBoost   = 0.10
)

// rankAndPaginate merges the per-type result lists, scores them when a
// ranking signal exists, and slices the requested page. Without a
// search or semantic signal the per-type order established by the fetch
// stage's query ordering is preserved as-is.
func (s *QueryService) rankAndPaginate(ctx context.Context, st queryState) (queryState, error) {
	req := st.req
	scored := st.candidates.hasSignals()

	merged := make([]*QueryItem, 0)
	for _, entryType := range requestedTypes(req) {
		for _, entry := range st.fetched[entryType] {
			item := &QueryItem{Entry: entry}
			if st.versions != nil {
				item.Version = st.versions[entry.ID]
			}
			if scored {
				item.Score = compositeScore(entry, st.candidates, time.Now())
				item.Scored = true
			}
			merged = append(merged, item)
		}
	}

	if scored {
		sort.SliceStable(merged, func(i, j int) bool {
			if merged[i].Score != merged[j].Score {
				return merged[i].Score > merged[j].Score
			}
			return merged[i].Entry.UpdatedAt.After(merged[j].Entry.UpdatedAt)
		})
	}

	page, pastWindow := pagination.Apply(merged, st.page)

	next := st
	next.result = &QueryResult{
		Results:       page,
		ReturnedCount: len(page),
		HasMore:       pastWindow || st.truncated,
	}
	return next, nil
}

// compositeScore combines the heterogeneous retrieval signals into one
// weighted sum.
func compositeScore(entry *domain.Entry, cands *candidateSet, now time.Time) float32 {
	var score float32

	if ids, ok := cands.ftsIDs[entry.Type]; ok {
		if _, hit := ids[entry.ID]; hit {
			score += ftsWeight
		}
	}

	if hit, ok := cands.semantic[entry.ID]; ok {
		score += semanticWeight * hit.score
	}

	score += recencyBoost(entry.UpdatedAt, now)

	if entry.Type == domain.EntryTypeGuideline {
		score += priorityWeight * float32(entry.Priority) / float32(domain.MaxPriority)
	}

	return score
}

// recencyBoost decays linearly from recencyMaxBoost at age zero to
// nothing past the window.
func recencyBoost(updatedAt, now time.Time) float32 {
	if updatedAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(updatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if ageDays > recencyWindowDays {
		return 0
	}
	scale := 1 - (ageDays / recencyWindowDays)
	return float32(scale) * recencyMaxBoost
}
