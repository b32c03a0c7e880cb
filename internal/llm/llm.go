// Package llm provides clients for the embedding and generation
// capabilities. Both are treated as opaque remote services; the
// pipeline owns retry and timeout policy, not this package.
package llm

import (
	"context"
	"encoding/json"
)

// EmbeddingProvider generates fixed-length vectors for text.
// Deterministic for a fixed model version; the same provider instance
// must serve both index builds and queries.
type EmbeddingProvider interface {
	// Embed generates one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// ChatProvider generates structured completions.
type ChatProvider interface {
	// GenerateStructured submits prompt with a response_format constraint
	// and returns the raw structured reply. The call is made exactly
	// once; callers impose their own retry and timeout policy.
	GenerateStructured(ctx context.Context, prompt string, responseFormat map[string]any) (json.RawMessage, error)
}

// Provider combines both capabilities.
type Provider interface {
	EmbeddingProvider
	ChatProvider
}
