package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
)

// Reindexer re-embeds archived learned examples into the knowledge store.
// Used after switching embedding models or rebuilding a vector collection.
type Reindexer struct {
	storage  service.Storage
	embedder service.EmbeddingProvider
	store    service.KnowledgeStore
	logger   *slog.Logger
}

// NewReindexer creates a Reindexer.
func NewReindexer(storage service.Storage, embedder service.EmbeddingProvider, store service.KnowledgeStore, logger *slog.Logger) *Reindexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{
		storage:  storage,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Reindex walks every archived example for the scope, requests a fresh
// embedding and upserts it. Individual failures are logged and skipped so a
// flaky provider does not abort the whole run.
func (r *Reindexer) Reindex(ctx context.Context, scope model.MemoryScope, ownerID string, showProgress bool) (int, error) {
	examples, err := r.storage.ListLearnedExamples(ctx, scope, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list learned examples: %w", err)
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(examples)), "reindexing memory")
	}

	reindexed := 0
	for i := range examples {
		if err := ctx.Err(); err != nil {
			return reindexed, err
		}

		example := examples[i]
		vector, err := r.embedder.Embed(ctx, example.Text)
		if err != nil {
			r.logger.Warn("failed to embed example, skipping",
				"example_id", example.ID,
				"error", err)
			continue
		}
		example.Embedding = vector

		if err := r.store.Insert(ctx, &example); err != nil {
			r.logger.Warn("failed to upsert example, skipping",
				"example_id", example.ID,
				"error", err)
			continue
		}

		reindexed++
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	r.logger.Info("memory reindex finished",
		"total", len(examples),
		"reindexed", reindexed)

	return reindexed, nil
}
