package model

import "time"

// ClassificationSource indicates which stage of the pipeline produced a result.
type ClassificationSource string

// Classification source constants.
const (
	SourceHeuristic ClassificationSource = "heuristic"
	SourceLearned   ClassificationSource = "learned"
	SourceModel     ClassificationSource = "model"
)

// ClassificationResult is the output of intent detection for one message.
// Exactly one result is produced per message, or none at all, in which case
// the caller escalates to the language model.
type ClassificationResult struct {
	Data       map[string]any
	Intent     string
	Source     ClassificationSource
	Confidence float64
}

// MemoryScope controls the visibility of a learned example.
type MemoryScope string

// Memory scope constants.
const (
	ScopeGlobal MemoryScope = "global"
	ScopeTenant MemoryScope = "tenant"
)

// LearnedExample is a previously confirmed interaction stored for semantic
// retrieval. Examples are append-only: never mutated, never deleted here.
type LearnedExample struct {
	CreatedAt time.Time
	Metadata  map[string]any
	ID        string
	Text      string
	Intent    string
	OwnerID   string
	Scope     MemoryScope
	Embedding []float32
}

// RecalledExample is a learned example ranked by similarity to a query.
type RecalledExample struct {
	Example    LearnedExample
	Similarity float64
}
