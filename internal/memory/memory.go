// Package memory implements the embedding-backed semantic memory of
// previously confirmed interactions.
package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
)

// RecallThreshold is the similarity a learned example must reach to
// short-circuit classification. It is deliberately strict: memory should only
// override the heuristics for near-identical phrasing.
const RecallThreshold = 0.95

// Archive persists learned examples outside the vector store so they can be
// re-embedded later.
type Archive interface {
	SaveLearnedExample(ctx context.Context, example *model.LearnedExample) error
}

// Memory stores and retrieves confirmed interactions by semantic similarity.
type Memory struct {
	embedder service.EmbeddingProvider
	store    service.KnowledgeStore
	archive  Archive
	logger   *slog.Logger
}

// New creates a Memory. The archive may be nil, in which case examples live
// only in the knowledge store.
func New(embedder service.EmbeddingProvider, store service.KnowledgeStore, archive Archive, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		embedder: embedder,
		store:    store,
		archive:  archive,
		logger:   logger,
	}
}

// Remember stores a confirmed interaction as a learned example. It runs as a
// side effect after the user already confirmed a transaction, so it never
// returns an error: provider failures are logged and swallowed, and the
// caller gets nil back.
func (m *Memory) Remember(ctx context.Context, text, intent string, metadata map[string]any, scope model.MemoryScope, ownerID string) *model.LearnedExample {
	if m.embedder == nil || m.store == nil {
		return nil
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.logger.Warn("embedding provider failed, skipping remember",
			"error", err,
			"intent", intent)
		return nil
	}

	example := &model.LearnedExample{
		ID:        uuid.NewString(),
		Text:      text,
		Intent:    intent,
		Metadata:  metadata,
		Scope:     scope,
		OwnerID:   ownerID,
		Embedding: vector,
		CreatedAt: time.Now(),
	}

	if err := m.store.Insert(ctx, example); err != nil {
		m.logger.Warn("knowledge store insert failed, skipping remember",
			"error", err,
			"intent", intent)
		return nil
	}

	if m.archive != nil {
		if err := m.archive.SaveLearnedExample(ctx, example); err != nil {
			m.logger.Warn("learned example archive write failed",
				"error", err,
				"example_id", example.ID)
		}
	}

	m.logger.Debug("remembered interaction",
		"example_id", example.ID,
		"intent", intent,
		"scope", scope)

	return example
}

// Recall returns learned examples similar to text, ranked by similarity,
// keeping only matches at or above threshold. It degrades to an empty result
// when the embedding provider or the knowledge store is unavailable.
func (m *Memory) Recall(ctx context.Context, text string, scope model.MemoryScope, ownerID string, threshold float64) []model.RecalledExample {
	if m.embedder == nil || m.store == nil {
		return nil
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.logger.Warn("embedding provider failed, recall degraded", "error", err)
		return nil
	}

	matches, err := m.store.Query(ctx, vector, scope, ownerID, threshold, 5)
	if err != nil {
		m.logger.Warn("knowledge store query failed, recall degraded", "error", err)
		return nil
	}

	return matches
}
