package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mfigueira/caixinha/internal/model"
)

// SaveLearnedExample archives a learned example. The archive is the durable
// source for vector-store reindexing; embeddings themselves are not stored
// here.
func (s *SQLiteStorage) SaveLearnedExample(ctx context.Context, example *model.LearnedExample) error {
	if example == nil {
		return fmt.Errorf("example is required")
	}

	metadataJSON, err := json.Marshal(example.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode example metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learned_examples (id, text, intent, scope, owner_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		example.ID, example.Text, example.Intent, string(example.Scope),
		example.OwnerID, string(metadataJSON), example.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save learned example: %w", err)
	}
	return nil
}

// ListLearnedExamples returns archived examples for a scope, oldest first.
// For tenant scope only the owner's examples are returned.
func (s *SQLiteStorage) ListLearnedExamples(ctx context.Context, scope model.MemoryScope, ownerID string) ([]model.LearnedExample, error) {
	query := `SELECT id, text, intent, scope, owner_id, metadata, created_at
		FROM learned_examples WHERE scope = ?`
	args := []any{string(scope)}

	if scope == model.ScopeTenant {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var examples []model.LearnedExample
	for rows.Next() {
		var example model.LearnedExample
		var scopeStr, metadataStr string
		if err := rows.Scan(&example.ID, &example.Text, &example.Intent,
			&scopeStr, &example.OwnerID, &metadataStr, &example.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learned example: %w", err)
		}

		example.Scope = model.MemoryScope(scopeStr)
		if metadataStr != "" {
			var metadata map[string]any
			if err := json.Unmarshal([]byte(metadataStr), &metadata); err == nil {
				example.Metadata = metadata
			}
		}

		examples = append(examples, example)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate learned examples: %w", err)
	}

	return examples, nil
}
