// Package llm provides the last-resort intent classifier backed by a
// general-purpose language model. It is only consulted when both the
// semantic memory and the heuristic classifier abstain.
package llm

import "context"

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
