// Package retrieval returns the most relevant corpus entries for a
// query, using over-fetch plus maximal marginal relevance selection so
// the k results cover distinct FAQ topics instead of near-duplicates.
package retrieval

import (
	"context"

	"github.com/campushelp/faq-bot/internal/llm"
	"github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/qdrant"
)

// Searcher is the slice of the Qdrant client the retriever needs.
type Searcher interface {
	DenseSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
}

// Result is one retrieved corpus entry.
type Result struct {
	Intent   string  `json:"intent"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float32 `json:"-"`
}

// Config holds retrieval settings.
type Config struct {
	// TopK is the number of results returned per query.
	TopK int

	// FetchK is the number of nearest neighbors over-fetched before
	// MMR selection.
	FetchK int

	// MMRLambda balances relevance (1) against diversity (0).
	MMRLambda float32
}

// DefaultConfig returns retrieval defaults.
func DefaultConfig() Config {
	return Config{
		TopK:      3,
		FetchK:    10,
		MMRLambda: 0.7,
	}
}

// Retriever retrieves corpus entries from the semantic index. It must
// use the same embedding provider the index was built with.
type Retriever struct {
	cfg        Config
	searcher   Searcher
	embedder   llm.EmbeddingProvider
	collection string
	log        *logger.Logger
}

// New creates a retriever over the given collection.
func New(cfg Config, searcher Searcher, embedder llm.EmbeddingProvider, collection string, log *logger.Logger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.FetchK < cfg.TopK {
		cfg.FetchK = cfg.TopK
	}
	if cfg.MMRLambda < 0 || cfg.MMRLambda > 1 {
		cfg.MMRLambda = DefaultConfig().MMRLambda
	}

	return &Retriever{
		cfg:        cfg,
		searcher:   searcher,
		embedder:   embedder,
		collection: collection,
		log:        log,
	}
}

// Retrieve returns up to TopK diverse results for the query, most
// relevant first. Deterministic for a fixed index and provider.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	queryVec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.RetrievalError("embedding query", err)
	}

	candidates, err := r.searcher.DenseSearch(ctx, r.collection, qdrant.SearchRequest{
		Vector:      queryVec,
		Limit:       uint64(r.cfg.FetchK),
		WithVectors: true,
	})
	if err != nil {
		return nil, errors.RetrievalError("similarity search", err)
	}

	selected := selectMMR(candidates, r.cfg.TopK, r.cfg.MMRLambda)

	results := make([]Result, 0, len(selected))
	for _, c := range selected {
		results = append(results, Result{
			Intent:   c.Payload.Intent,
			Question: c.Payload.Question,
			Answer:   c.Payload.Answer,
			Score:    c.Score,
		})
	}

	r.log.Debug("Retrieved results", "query_len", len(query), "candidates", len(candidates), "selected", len(results))
	return results, nil
}
