// Package index owns the semantic index lifecycle: building a vector
// collection from the corpus, attaching to a previously built one, and
// deciding between the two at startup.
package index

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/campushelp/faq-bot/internal/corpus"
	"github.com/campushelp/faq-bot/internal/llm"
	"github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/qdrant"
)

// VectorStore is the slice of the Qdrant client the manager needs.
type VectorStore interface {
	CreateCollection(ctx context.Context, cfg qdrant.CollectionConfig) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	CountPoints(ctx context.Context, collection string) (uint64, error)
	UpsertPointsBatch(ctx context.Context, collection string, points []qdrant.Point, batchSize int) error
}

// Config holds index lifecycle settings.
type Config struct {
	// Collection is the collection name (without the faq_ prefix).
	Collection string

	// UseCache enables attaching to an existing collection at startup.
	UseCache bool

	// EmbedDim is the embedding dimension.
	EmbedDim int

	// EmbedBatchSize is how many texts are embedded per provider call.
	EmbedBatchSize int

	// EmbedWorkers bounds concurrent embedding batches during a build.
	EmbedWorkers int
}

// DefaultConfig returns sensible index defaults.
func DefaultConfig() Config {
	return Config{
		Collection:     "faq_collection",
		UseCache:       true,
		EmbedDim:       1536,
		EmbedBatchSize: 32,
		EmbedWorkers:   4,
	}
}

// Manager builds and loads the semantic index. The embedding provider
// passed at construction is the one the index is built with; queries
// must go through the same instance or similarity scores are
// meaningless.
type Manager struct {
	cfg      Config
	store    VectorStore
	embedder llm.EmbeddingProvider
	log      *logger.Logger
}

// NewManager creates an index manager.
func NewManager(cfg Config, store VectorStore, embedder llm.EmbeddingProvider, log *logger.Logger) *Manager {
	if cfg.Collection == "" {
		cfg.Collection = DefaultConfig().Collection
	}
	if cfg.EmbedDim <= 0 {
		cfg.EmbedDim = DefaultConfig().EmbedDim
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultConfig().EmbedBatchSize
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = DefaultConfig().EmbedWorkers
	}

	return &Manager{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		log:      log,
	}
}

// Collection returns the collection name the manager operates on.
func (m *Manager) Collection() string {
	return m.cfg.Collection
}

// Exists reports whether a non-empty persisted collection is present.
func (m *Manager) Exists(ctx context.Context) (bool, error) {
	exists, err := m.store.CollectionExists(ctx, m.cfg.Collection)
	if err != nil {
		return false, errors.VectorStoreError("checking collection existence", err)
	}
	if !exists {
		return false, nil
	}

	count, err := m.store.CountPoints(ctx, m.cfg.Collection)
	if err != nil {
		return false, errors.VectorStoreError("counting collection points", err)
	}

	return count > 0, nil
}

// Load attaches to a previously built collection without recomputation.
func (m *Manager) Load(ctx context.Context) error {
	exists, err := m.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return errors.IndexNotFoundError(m.cfg.Collection)
	}

	m.log.Info("Loaded cached semantic index", "collection", m.cfg.Collection)
	return nil
}

// Build embeds every corpus entry and replaces the persisted collection.
// Any prior collection of the same name is deleted first so stale
// entries cannot leak into the rebuilt index.
func (m *Manager) Build(ctx context.Context, entries corpus.Entries) error {
	if len(entries) == 0 {
		return errors.CorpusUnavailableError("corpus has no entries to index", nil)
	}

	exists, err := m.store.CollectionExists(ctx, m.cfg.Collection)
	if err != nil {
		return errors.VectorStoreError("checking collection existence", err)
	}
	if exists {
		if err := m.store.DeleteCollection(ctx, m.cfg.Collection); err != nil {
			return errors.VectorStoreError("deleting stale collection", err)
		}
	}

	cfg := qdrant.DefaultCollectionConfig(m.cfg.Collection)
	cfg.VectorSize = uint64(m.cfg.EmbedDim)
	if err := m.store.CreateCollection(ctx, cfg); err != nil {
		return errors.VectorStoreError("creating collection", err)
	}

	points, err := m.embedEntries(ctx, entries)
	if err != nil {
		return err
	}

	if err := m.store.UpsertPointsBatch(ctx, m.cfg.Collection, points, m.cfg.EmbedBatchSize); err != nil {
		return errors.VectorStoreError("upserting points", err)
	}

	m.log.Info("Built semantic index", "collection", m.cfg.Collection, "documents", len(points))
	return nil
}

// Ensure applies the startup lifecycle policy: load when caching is
// enabled and a non-empty collection exists, otherwise build.
func (m *Manager) Ensure(ctx context.Context, entries corpus.Entries) error {
	if m.cfg.UseCache {
		err := m.Load(ctx)
		if err == nil {
			return nil
		}
		if !errors.IsIndexNotFound(err) {
			return err
		}
		m.log.Info("No cached semantic index, building", "collection", m.cfg.Collection)
	}

	return m.Build(ctx, entries)
}

// Rebuild deletes any persisted collection and builds from scratch.
func (m *Manager) Rebuild(ctx context.Context, entries corpus.Entries) error {
	return m.Build(ctx, entries)
}

// embedEntries embeds entry contents in bounded-concurrency batches.
// Output ordering matches entry order regardless of completion order.
func (m *Manager) embedEntries(ctx context.Context, entries corpus.Entries) ([]qdrant.Point, error) {
	points := make([]qdrant.Point, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.EmbedWorkers)

	batchSize := m.cfg.EmbedBatchSize
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, entry := range entries[start:end] {
				texts = append(texts, entry.Content())
			}

			embeddings, err := m.embedder.Embed(ctx, texts)
			if err != nil {
				return errors.LLMError("embedding corpus batch", err)
			}
			if len(embeddings) != len(texts) {
				return errors.LLMError("embedding batch size mismatch", nil)
			}

			for i, embedding := range embeddings {
				row := start + i
				points[row] = qdrant.Point{
					ID:     uint64(row),
					Vector: embedding,
					Payload: qdrant.FAQPayload{
						Intent:   entries[row].Intent,
						Question: entries[row].Question,
						Answer:   entries[row].Answer,
						Row:      row,
					},
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return points, nil
}
