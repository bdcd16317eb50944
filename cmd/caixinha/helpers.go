package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/classify"
	"github.com/mfigueira/caixinha/internal/config"
	"github.com/mfigueira/caixinha/internal/engine"
	"github.com/mfigueira/caixinha/internal/llm"
	"github.com/mfigueira/caixinha/internal/memory"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/pricing"
	"github.com/mfigueira/caixinha/internal/service"
	"github.com/mfigueira/caixinha/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initKnowledgeStore builds the configured vector store backend.
func initKnowledgeStore(ctx context.Context, cfg *config.Config) (service.KnowledgeStore, error) {
	switch cfg.Memory.Backend {
	case "chromem":
		return memory.NewChromemStore(cfg.Memory.Path, cfg.Memory.Collection)
	case "qdrant":
		return memory.NewQdrantStore(ctx, memory.QdrantConfig{
			Host:       cfg.Memory.QdrantHost,
			Port:       cfg.Memory.QdrantPort,
			Collection: cfg.Memory.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Memory.Backend)
	}
}

// buildEngine wires the full pipeline from configuration. The returned
// cleanup function must be called on shutdown.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanups := []func(){func() { _ = store.Close() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	cache := classify.NewResultCache()
	cleanups = append(cleanups, cache.Close)

	engineCfg := engine.Config{
		Storage:   store,
		Heuristic: classify.New(cache, logger),
		Pricing:   pricing.NewFeeTable(feeConfig(cfg)),
		Logger:    logger,
		Scope:     model.MemoryScope(cfg.Memory.Scope),
	}

	// Memory and the LLM fallback need an embedding/completion provider;
	// without credentials the engine runs on heuristics alone.
	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured; semantic memory and model fallback disabled")
		eng, err := engine.New(engineCfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return eng, cleanup, nil
	}

	knowledge, err := initKnowledgeStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	embedder, err := memory.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.Memory.EmbeddingModel)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	engineCfg.Memory = memory.New(embedder, knowledge, store, logger)

	fallback, err := llm.NewClassifier(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxRetries:  3,
		RetryDelay:  time.Second,
		RateLimit:   30,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, fallback.Close)
	engineCfg.Fallback = fallback

	eng, err := engine.New(engineCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return eng, cleanup, nil
}

func feeConfig(cfg *config.Config) pricing.FeeConfig {
	fees := pricing.DefaultFeeConfig()
	if cfg.Fees.DebitPercent > 0 {
		fees.DebitPercent = decimal.NewFromFloat(cfg.Fees.DebitPercent)
	}
	if cfg.Fees.CreditPercent > 0 {
		fees.CreditPercent = decimal.NewFromFloat(cfg.Fees.CreditPercent)
	}
	if cfg.Fees.InstallmentBasePercent > 0 {
		fees.InstallmentBasePercent = decimal.NewFromFloat(cfg.Fees.InstallmentBasePercent)
	}
	if cfg.Fees.InstallmentStepPercent > 0 {
		fees.InstallmentStepPercent = decimal.NewFromFloat(cfg.Fees.InstallmentStepPercent)
	}
	return fees
}
