package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mfigueira/caixinha/internal/model"
)

// ChromemStore implements service.KnowledgeStore on chromem-go, an embedded
// pure-Go vector database. It needs no external service, which fits the
// single-instance deployment model where conversation state is in-process
// anyway.
type ChromemStore struct {
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) a persistent chromem collection at
// path. An empty path keeps everything in memory, which is what the tests
// use.
func NewChromemStore(path, collectionName string) (*ChromemStore, error) {
	if collectionName == "" {
		collectionName = "caixinha_memory"
	}

	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem DB: %w", err)
		}
	}

	// Embeddings are always supplied by the caller, never computed here.
	noEmbed := func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("embeddings must be precomputed")
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	return &ChromemStore{collection: collection}, nil
}

// Insert stores a learned example with its precomputed embedding.
func (s *ChromemStore) Insert(ctx context.Context, example *model.LearnedExample) error {
	metadataJSON, err := json.Marshal(example.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode example metadata: %w", err)
	}

	doc := chromem.Document{
		ID:        example.ID,
		Content:   example.Text,
		Embedding: example.Embedding,
		Metadata: map[string]string{
			"intent":     example.Intent,
			"scope":      string(example.Scope),
			"owner_id":   example.OwnerID,
			"metadata":   string(metadataJSON),
			"created_at": strconv.FormatInt(example.CreatedAt.Unix(), 10),
		},
	}

	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("chromem insert failed: %w", err)
	}
	return nil
}

// Query returns examples similar to vector within the given scope.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, scope model.MemoryScope, ownerID string, threshold float64, limit int) ([]model.RecalledExample, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	where := map[string]string{"scope": string(scope)}
	if scope == model.ScopeTenant {
		where["owner_id"] = ownerID
	}

	found, err := s.collection.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	results := make([]model.RecalledExample, 0, len(found))
	for _, r := range found {
		similarity := float64(r.Similarity)
		if similarity < threshold {
			continue
		}

		example := model.LearnedExample{
			ID:      r.ID,
			Text:    r.Content,
			Intent:  r.Metadata["intent"],
			Scope:   scope,
			OwnerID: r.Metadata["owner_id"],
		}
		if ts, err := strconv.ParseInt(r.Metadata["created_at"], 10, 64); err == nil {
			example.CreatedAt = time.Unix(ts, 0)
		}
		if raw := r.Metadata["metadata"]; raw != "" {
			var metadata map[string]any
			if err := json.Unmarshal([]byte(raw), &metadata); err == nil {
				example.Metadata = metadata
			}
		}

		results = append(results, model.RecalledExample{
			Example:    example,
			Similarity: similarity,
		})
	}

	return results, nil
}
