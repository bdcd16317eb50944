package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/mfigueira/caixinha/internal/model"
)

// QdrantStore implements service.KnowledgeStore on a Qdrant server. This is
// the multi-instance deployment option; single instances can use the
// embedded chromem store instead.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// QdrantConfig holds connection settings for the Qdrant store.
type QdrantConfig struct {
	Host       string
	Collection string
	Port       int
	VectorSize uint64
	UseTLS     bool
}

// NewQdrantStore connects to Qdrant and ensures the collection exists.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "caixinha_memory"
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 1536
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{client: client, collection: cfg.Collection}
	if err := store.ensureCollection(ctx, cfg.VectorSize); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Insert upserts a learned example as a point.
func (s *QdrantStore) Insert(ctx context.Context, example *model.LearnedExample) error {
	metadataJSON, err := json.Marshal(example.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode example metadata: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(example.ID),
		Vectors: qdrant.NewVectors(example.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"text":       example.Text,
			"intent":     example.Intent,
			"scope":      string(example.Scope),
			"owner_id":   example.OwnerID,
			"metadata":   string(metadataJSON),
			"created_at": example.CreatedAt.Unix(),
		}),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Query returns examples similar to vector within the given scope, ranked by
// cosine similarity, filtered by threshold.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, scope model.MemoryScope, ownerID string, threshold float64, limit int) ([]model.RecalledExample, error) {
	conditions := []*qdrant.Condition{
		qdrant.NewMatchKeyword("scope", string(scope)),
	}
	if scope == model.ScopeTenant {
		conditions = append(conditions, qdrant.NewMatchKeyword("owner_id", ownerID))
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         &qdrant.Filter{Must: conditions},
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	results := make([]model.RecalledExample, 0, len(points))
	for _, p := range points {
		example := model.LearnedExample{
			Scope: scope,
		}
		if v, ok := p.Payload["text"]; ok {
			example.Text = v.GetStringValue()
		}
		if v, ok := p.Payload["intent"]; ok {
			example.Intent = v.GetStringValue()
		}
		if v, ok := p.Payload["owner_id"]; ok {
			example.OwnerID = v.GetStringValue()
		}
		if v, ok := p.Payload["created_at"]; ok {
			example.CreatedAt = time.Unix(v.GetIntegerValue(), 0)
		}
		if v, ok := p.Payload["metadata"]; ok {
			var metadata map[string]any
			if err := json.Unmarshal([]byte(v.GetStringValue()), &metadata); err == nil {
				example.Metadata = metadata
			}
		}
		if id := p.GetId(); id != nil {
			example.ID = id.GetUuid()
		}

		results = append(results, model.RecalledExample{
			Example:    example,
			Similarity: float64(p.GetScore()),
		})
	}

	return results, nil
}
