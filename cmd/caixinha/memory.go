package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mfigueira/caixinha/internal/config"
	"github.com/mfigueira/caixinha/internal/memory"
	"github.com/mfigueira/caixinha/internal/model"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage the semantic memory",
	}

	cmd.AddCommand(memoryReindexCmd())

	return cmd
}

func memoryReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector store from archived examples",
		Long: `Re-embed every learned example archived in the database and insert it
into the configured vector store. Run this after switching memory
backends or embedding models.`,
		RunE: runMemoryReindex,
	}

	cmd.Flags().String("owner", "", "limit reindexing to one owner's tenant-scoped examples")

	return cmd
}

func runMemoryReindex(cmd *cobra.Command, _ []string) error {
	ownerID, _ := cmd.Flags().GetString("owner")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("reindexing requires an embedding provider; set llm.api_key or OPENAI_API_KEY")
	}

	logger := slog.Default()
	ctx := cmd.Context()

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	knowledge, err := initKnowledgeStore(ctx, cfg)
	if err != nil {
		return err
	}

	embedder, err := memory.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.Memory.EmbeddingModel)
	if err != nil {
		return err
	}

	scope := model.MemoryScope(cfg.Memory.Scope)
	if ownerID == "" {
		scope = model.ScopeGlobal
	}

	reindexer := memory.NewReindexer(store, embedder, knowledge, logger)
	count, err := reindexer.Reindex(ctx, scope, ownerID, true)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("reindexed %d examples\n", count)
	return nil
}
