package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoadVersions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input yields empty maps without a read", func(t *testing.T) {
		store := new(MockVersionStore)

		out, err := LoadVersions(ctx, store, nil)

		require.NoError(t, err)
		require.Len(t, out, len(VersionedEntryTypes))
		for _, entryType := range VersionedEntryTypes {
			set, ok := out[entryType]
			assert.True(t, ok)
			assert.Empty(t, set)
		}
		store.AssertNotCalled(t, "BatchVersions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("one read per non-empty type with deduped ids", func(t *testing.T) {
		store := new(MockVersionStore)
		set := &domain.VersionSet{
			Current: &domain.EntryVersion{ID: "v3", EntryID: "a", VersionNum: 3},
			History: []*domain.EntryVersion{
				{ID: "v3", EntryID: "a", VersionNum: 3},
				{ID: "v2", EntryID: "a", VersionNum: 2},
				{ID: "v1", EntryID: "a", VersionNum: 1},
			},
		}

		store.On("BatchVersions", mock.Anything, domain.EntryTypeGuideline, []string{"a", "b"}).
			Return(map[string]*domain.VersionSet{"a": set}, nil).Once()

		out, err := LoadVersions(ctx, store, map[domain.EntryType][]string{
			domain.EntryTypeGuideline: {"a", "b", "a", "b"},
		})

		require.NoError(t, err)
		assert.Equal(t, set, out[domain.EntryTypeGuideline]["a"])
		// Unknown ids are simply absent, never a null placeholder.
		_, present := out[domain.EntryTypeGuideline]["b"]
		assert.False(t, present)
		assert.Empty(t, out[domain.EntryTypeKnowledge])
		assert.Empty(t, out[domain.EntryTypeExperience])
		store.AssertExpectations(t)
	})

	t.Run("history is newest first and current matches its head", func(t *testing.T) {
		store := new(MockVersionStore)
		set := &domain.VersionSet{
			Current: &domain.EntryVersion{ID: "v2", EntryID: "k", VersionNum: 2},
			History: []*domain.EntryVersion{
				{ID: "v2", EntryID: "k", VersionNum: 2},
				{ID: "v1", EntryID: "k", VersionNum: 1},
			},
		}
		store.On("BatchVersions", mock.Anything, domain.EntryTypeKnowledge, []string{"k"}).
			Return(map[string]*domain.VersionSet{"k": set}, nil)

		out, err := LoadVersions(ctx, store, map[domain.EntryType][]string{
			domain.EntryTypeKnowledge: {"k"},
		})

		require.NoError(t, err)
		got := out[domain.EntryTypeKnowledge]["k"]
		require.NotNil(t, got)
		require.NotEmpty(t, got.History)
		assert.Equal(t, got.Current, got.History[0])
		assert.Greater(t, got.History[0].VersionNum, got.History[1].VersionNum)
	})

	t.Run("tool ids are ignored", func(t *testing.T) {
		store := new(MockVersionStore)

		out, err := LoadVersions(ctx, store, map[domain.EntryType][]string{
			domain.EntryTypeTool: {"t1", "t2"},
		})

		require.NoError(t, err)
		_, present := out[domain.EntryTypeTool]
		assert.False(t, present)
		store.AssertNotCalled(t, "BatchVersions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("parallel reads across all types assemble without interference", func(t *testing.T) {
		store := new(MockVersionStore)
		sets := map[domain.EntryType]*domain.VersionSet{
			domain.EntryTypeGuideline:  {Current: &domain.EntryVersion{ID: "gv1", EntryID: "g", VersionNum: 1}},
			domain.EntryTypeKnowledge:  {Current: &domain.EntryVersion{ID: "kv1", EntryID: "k", VersionNum: 1}},
			domain.EntryTypeExperience: {Current: &domain.EntryVersion{ID: "ev1", EntryID: "e", VersionNum: 1}},
		}
		ids := map[domain.EntryType][]string{
			domain.EntryTypeGuideline:  {"g"},
			domain.EntryTypeKnowledge:  {"k"},
			domain.EntryTypeExperience: {"e"},
		}
		for entryType, set := range sets {
			store.On("BatchVersions", mock.Anything, entryType, ids[entryType]).
				Return(map[string]*domain.VersionSet{set.Current.EntryID: set}, nil)
		}

		// All three reads run concurrently; loop to give the race
		// detector repeated interleavings.
		for range 50 {
			out, err := LoadVersions(ctx, store, ids)

			require.NoError(t, err)
			for entryType, set := range sets {
				assert.Equal(t, set, out[entryType][set.Current.EntryID])
			}
		}
	})

	t.Run("store failure fails the whole load", func(t *testing.T) {
		store := new(MockVersionStore)
		store.On("BatchVersions", mock.Anything, domain.EntryTypeGuideline, mock.Anything).
			Return(nil, errors.New("connection reset"))
		store.On("BatchVersions", mock.Anything, domain.EntryTypeKnowledge, mock.Anything).
			Return(map[string]*domain.VersionSet{}, nil).Maybe()

		_, err := LoadVersions(ctx, store, map[domain.EntryType][]string{
			domain.EntryTypeGuideline: {"g"},
			domain.EntryTypeKnowledge: {"k"},
		})

		require.Error(t, err)
		derr, ok := err.(*domain.DomainError)
		require.True(t, ok)
		assert.Equal(t, domain.ErrCodeStorage, derr.Code)
	})
}

func TestQueryService_EntryVersions(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the version set for a versioned entry", func(t *testing.T) {
		svc, m := newQueryService()
		entry := makeEntry("k1", domain.EntryTypeKnowledge, time.Now())
		set := &domain.VersionSet{
			Current: &domain.EntryVersion{ID: "v2", EntryID: "k1", VersionNum: 2},
			History: []*domain.EntryVersion{
				{ID: "v2", EntryID: "k1", VersionNum: 2},
				{ID: "v1", EntryID: "k1", VersionNum: 1},
			},
		}
		m.entries.On("GetByID", mock.Anything, "k1").Return(entry, nil)
		m.versions.On("BatchVersions", mock.Anything, domain.EntryTypeKnowledge, []string{"k1"}).
			Return(map[string]*domain.VersionSet{"k1": set}, nil)

		got, err := svc.EntryVersions(ctx, "k1")

		require.NoError(t, err)
		assert.Equal(t, set, got)
	})

	t.Run("tool entries are rejected without a version read", func(t *testing.T) {
		svc, m := newQueryService()
		m.entries.On("GetByID", mock.Anything, "t1").Return(makeEntry("t1", domain.EntryTypeTool, time.Now()), nil)

		_, err := svc.EntryVersions(ctx, "t1")

		require.Error(t, err)
		derr, ok := err.(*domain.DomainError)
		require.True(t, ok)
		assert.Equal(t, domain.ErrCodeInvalidOperation, derr.Code)
		m.versions.AssertNotCalled(t, "BatchVersions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing entry passes the not found error through", func(t *testing.T) {
		svc, m := newQueryService()
		m.entries.On("GetByID", mock.Anything, "nope").Return(nil, domain.ErrEntryNotFound)

		_, err := svc.EntryVersions(ctx, "nope")

		assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	})

	t.Run("entry without version rows yields an empty set", func(t *testing.T) {
		svc, m := newQueryService()
		m.entries.On("GetByID", mock.Anything, "g1").Return(makeEntry("g1", domain.EntryTypeGuideline, time.Now()), nil)
		m.versions.On("BatchVersions", mock.Anything, domain.EntryTypeGuideline, []string{"g1"}).
			Return(map[string]*domain.VersionSet{}, nil)

		got, err := svc.EntryVersions(ctx, "g1")

		require.NoError(t, err)
		assert.Nil(t, got.Current)
		assert.Empty(t, got.History)
	})
}

func TestDedupeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupeIDs([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{"a"}, dedupeIDs([]string{"a"}))
	assert.Empty(t, dedupeIDs(nil))
}
