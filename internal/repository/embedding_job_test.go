//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingJobRepository(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	entryRepo := NewEntryRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	e := testEntry(domain.EntryTypeKnowledge, domain.ScopeRef{Type: domain.ScopeTypeGlobal})
	require.NoError(t, entryRepo.Create(ctx, e))

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		EntryID:   e.ID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	t.Run("claim flips pending jobs to processing", func(t *testing.T) {
		claimed, err := jobRepo.ClaimPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, job.ID, claimed[0].ID)
		assert.Equal(t, e.ID, claimed[0].EntryID)
		assert.Equal(t, domain.EmbeddingJobStatusProcessing, claimed[0].Status)

		// Nothing left to claim.
		claimed, err = jobRepo.ClaimPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("completion stamps processed_at", func(t *testing.T) {
		require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""))

		got, err := jobRepo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingJobStatusCompleted, got.Status)
		assert.NotNil(t, got.ProcessedAt)
		assert.Empty(t, got.Error)
	})

	t.Run("failure records the error and retries increment", func(t *testing.T) {
		require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "rate limited"))
		require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))

		got, err := jobRepo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingJobStatusFailed, got.Status)
		assert.Equal(t, "rate limited", got.Error)
		assert.Equal(t, int32(1), got.Retries)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		_, err := jobRepo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)

		assert.ErrorIs(t, jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.EmbeddingJobStatusFailed, "x"), ErrEmbeddingJobNotFound)
	})
}
