package service

import (
	"context"
	"strings"

	"github.com/stratumhq/stratum/internal/domain"
)

// EmbeddingEntryStore defines the repository interface for embedding updates
type EmbeddingEntryStore interface {
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores entry embeddings. It is driven
// by the background worker, not by the query pipeline.
type EmbeddingService struct {
	client  EmbeddingClient
	entries EmbeddingEntryStore
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, entries EmbeddingEntryStore) *EmbeddingService {
	return &EmbeddingService{
		client:  client,
		entries: entries,
	}
}

// GenerateEmbedding generates and stores an embedding for the given entry ID
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, entryID string) error {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, buildEmbeddingText(entry))
	if err != nil {
		return err
	}

	return s.entries.UpdateEmbedding(ctx, entryID, embedding)
}

// buildEmbeddingText assembles the text to embed from the entry's
// name, category, tags, and content.
func buildEmbeddingText(e *domain.Entry) string {
	parts := make([]string, 0, 4)
	if e.Name != "" {
		parts = append(parts, e.Name)
	}
	if e.Category != "" {
		parts = append(parts, e.Category)
	}
	if len(e.Tags) > 0 {
		parts = append(parts, strings.Join(e.Tags, " "))
	}
	if e.Content != "" {
		parts = append(parts, e.Content)
	}
	return strings.Join(parts, "\n\n")
}
