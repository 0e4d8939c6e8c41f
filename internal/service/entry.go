package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/telemetry"
)

// EntryWriteStore defines the repository interface for entry persistence
type EntryWriteStore interface {
	Create(ctx context.Context, e *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	Update(ctx context.Context, e *domain.Entry) error
	Deactivate(ctx context.Context, id string) error
	CreateVersion(ctx context.Context, v *domain.EntryVersion) error
	LatestVersionNum(ctx context.Context, entryID string) (int64, error)
	AddRelation(ctx context.Context, fromID, toID, relType string) error
}

// EmbeddingJobStore defines the repository interface for embedding job persistence
type EmbeddingJobStore interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// EntryService handles the write path: entry creation, updates with
// version snapshots, and deactivation. The query pipeline never writes;
// this service never ranks.
type EntryService struct {
	entries  EntryWriteStore
	jobs     EmbeddingJobStore
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewEntryService creates a new EntryService instance
func NewEntryService(entries EntryWriteStore, jobs EmbeddingJobStore) *EntryService {
	return &EntryService{
		entries: entries,
		jobs:    jobs,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewEntryServiceWithTx creates an EntryService that runs multi-write
// operations inside a transaction.
func NewEntryServiceWithTx(entries EntryWriteStore, jobs EmbeddingJobStore, txRunner TxRunner) *EntryService {
	return &EntryService{
		entries:  entries,
		jobs:     jobs,
		txRunner: txRunner,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewEntryServiceWithUUIDGen creates an EntryService with a custom UUID generator (for testing)
func NewEntryServiceWithUUIDGen(entries EntryWriteStore, jobs EmbeddingJobStore, uuidGen UUIDGenerator) *EntryService {
	return &EntryService{
		entries: entries,
		jobs:    jobs,
		uuidGen: uuidGen,
	}
}

// CreateEntryInput represents the input for creating an entry
type CreateEntryInput struct {
	Type       domain.EntryType
	Scope      domain.ScopeRef
	Category   string
	Name       string
	Content    string
	Tags       []string
	Priority   int
	Level      string
	ValidFrom  *time.Time
	ValidUntil *time.Time
	CreatedBy  string
}

// UpdateEntryInput represents the input for updating an entry
type UpdateEntryInput struct {
	EntryID      string
	Content      string
	Category     string
	Tags         []string
	Priority     int
	Level        string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	ChangeReason string
}

// Create creates a new entry with its first version and queues an embedding job
func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "EntryService.Create", telemetry.SpanAttributes{
		ScopeType: string(input.Scope.Type),
		ScopeID:   input.Scope.ID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()

	entry := &domain.Entry{
		ID:         s.uuidGen.NewString(),
		Type:       input.Type,
		ScopeType:  input.Scope.Type,
		ScopeID:    input.Scope.ID,
		Category:   input.Category,
		Name:       input.Name,
		Content:    input.Content,
		Tags:       input.Tags,
		Priority:   input.Priority,
		Level:      input.Level,
		ValidFrom:  input.ValidFrom,
		ValidUntil: input.ValidUntil,
		IsActive:   true,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := domain.ValidateEntry(entry); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid entry", err)
	}

	version := &domain.EntryVersion{
		ID:           s.uuidGen.NewString(),
		EntryID:      entry.ID,
		VersionNum:   1,
		Content:      input.Content,
		ChangeReason: "initial version",
		CreatedAt:    now,
	}

	if s.txRunner != nil {
		if err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Entries().Create(ctx, entry); err != nil {
				return err
			}
			if err := repos.Entries().CreateVersion(ctx, version); err != nil {
				return err
			}
			return s.queueEmbedding(ctx, repos.EmbeddingJobs(), entry.ID, now)
		}); err != nil {
			return nil, err
		}
		return entry, nil
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.entries.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	if err := s.queueEmbedding(ctx, s.jobs, entry.ID, now); err != nil {
		return nil, err
	}

	return entry, nil
}

// Update updates an entry, snapshots the new content as version N+1,
// and queues a fresh embedding job. Prior versions are never touched.
func (s *EntryService) Update(ctx context.Context, input UpdateEntryInput) (*domain.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "EntryService.Update", telemetry.SpanAttributes{
		EntryID:   input.EntryID,
		Operation: "update",
	})
	defer span.End()

	entry, err := s.entries.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}

	entry.Content = input.Content
	if input.Category != "" {
		entry.Category = input.Category
	}
	if input.Tags != nil {
		entry.Tags = input.Tags
	}
	if input.Priority != 0 {
		entry.Priority = input.Priority
	}
	if input.Level != "" {
		entry.Level = input.Level
	}
	if input.ValidFrom != nil {
		entry.ValidFrom = input.ValidFrom
	}
	if input.ValidUntil != nil {
		entry.ValidUntil = input.ValidUntil
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateEntry(entry); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid entry", err)
	}

	if s.txRunner != nil {
		if err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			return s.applyUpdate(ctx, repos.Entries(), repos.EmbeddingJobs(), entry, input)
		}); err != nil {
			return nil, err
		}
		return entry, nil
	}

	if err := s.applyUpdate(ctx, s.entries, s.jobs, entry, input); err != nil {
		return nil, err
	}

	return entry, nil
}

// applyUpdate persists the updated row, snapshots the next version, and
// queues the re-embed.
func (s *EntryService) applyUpdate(ctx context.Context, entries EntryWriteStore, jobs EmbeddingJobStore, entry *domain.Entry, input UpdateEntryInput) error {
	if err := entries.Update(ctx, entry); err != nil {
		return err
	}

	latest, err := entries.LatestVersionNum(ctx, entry.ID)
	if err != nil {
		return err
	}

	version := &domain.EntryVersion{
		ID:           s.uuidGen.NewString(),
		EntryID:      entry.ID,
		VersionNum:   latest + 1,
		Content:      input.Content,
		ChangeReason: input.ChangeReason,
		CreatedAt:    entry.UpdatedAt,
	}

	if err := entries.CreateVersion(ctx, version); err != nil {
		return err
	}

	return s.queueEmbedding(ctx, jobs, entry.ID, entry.UpdatedAt)
}

// Deactivate flips is_active off. Entries are never hard-deleted.
func (s *EntryService) Deactivate(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "EntryService.Deactivate", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "deactivate",
	})
	defer span.End()

	return s.entries.Deactivate(ctx, id)
}

// GetByID retrieves an entry by ID
func (s *EntryService) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return s.entries.GetByID(ctx, id)
}

// Relate records a relation edge between two entries.
func (s *EntryService) Relate(ctx context.Context, fromID, toID, relType string) error {
	if fromID == "" || toID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "relation requires both entry ids")
	}
	if _, err := s.entries.GetByID(ctx, fromID); err != nil {
		return err
	}
	if _, err := s.entries.GetByID(ctx, toID); err != nil {
		return err
	}
	return s.entries.AddRelation(ctx, fromID, toID, relType)
}

func (s *EntryService) queueEmbedding(ctx context.Context, jobs EmbeddingJobStore, entryID string, now time.Time) error {
	job := &domain.EmbeddingJob{
		ID:        s.uuidGen.NewString(),
		EntryID:   entryID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: now,
	}
	return jobs.Create(ctx, job)
}
