package service

import (
	"context"
	"testing"

	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testTxRepos struct {
	entries       EntryWriteStore
	embeddingJobs EmbeddingJobStore
}

func (t *testTxRepos) Entries() EntryWriteStore {
	return t.entries
}

func (t *testTxRepos) EmbeddingJobs() EmbeddingJobStore {
	return t.embeddingJobs
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}

func TestEntryService_Create_UsesTransactionWhenConfigured(t *testing.T) {
	ctx := context.Background()

	mockEntries := new(MockEntryWriteStore)
	mockJobs := new(MockEmbeddingJobStore)
	runner := &testTxRunner{repos: &testTxRepos{entries: mockEntries, embeddingJobs: mockJobs}}

	service := NewEntryServiceWithTx(mockEntries, mockJobs, runner)

	mockEntries.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockEntries.On("CreateVersion", mock.Anything, mock.Anything).Return(nil)
	mockJobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := service.Create(ctx, CreateEntryInput{
		Type:    domain.EntryTypeKnowledge,
		Scope:   domain.ScopeRef{Type: domain.ScopeTypeGlobal},
		Name:    "Pooling",
		Content: "Use a shared pool.",
	})

	require.NoError(t, err)
	assert.True(t, runner.called)
	mockEntries.AssertExpectations(t)
	mockJobs.AssertExpectations(t)
}
