package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/campushelp/faq-bot/internal/corpus"
	apperrors "github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/qdrant"
)

// fakeStore is an in-memory VectorStore.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string][]qdrant.Point
	createCfg   qdrant.CollectionConfig
	deletes     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string][]qdrant.Point)}
}

func (s *fakeStore) CreateCollection(ctx context.Context, cfg qdrant.CollectionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCfg = cfg
	if _, ok := s.collections[cfg.Name]; !ok {
		s.collections[cfg.Name] = nil
	}
	return nil
}

func (s *fakeStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.collections, name)
	return nil
}

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *fakeStore) CountPoints(ctx context.Context, collection string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.collections[collection])), nil
}

func (s *fakeStore) UpsertPointsBatch(ctx context.Context, collection string, points []qdrant.Point, batchSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[uint64]qdrant.Point, len(s.collections[collection]))
	for _, p := range s.collections[collection] {
		byID[p.ID] = p
	}
	for _, p := range points {
		byID[p.ID] = p
	}
	merged := make([]qdrant.Point, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	s.collections[collection] = merged
	return nil
}

// rowEmbedder emits a distinct vector per text so ordering is checkable.
type rowEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *rowEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), float32(i)}
	}
	return out, nil
}

func (e *rowEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func testEntries(n int) corpus.Entries {
	entries := make(corpus.Entries, n)
	for i := range entries {
		entries[i] = corpus.Entry{
			Intent:   "Hostel",
			Question: fmt.Sprintf("question %d", i),
			Answer:   fmt.Sprintf("answer %d", i),
		}
	}
	return entries
}

func newTestManager(store VectorStore) *Manager {
	cfg := DefaultConfig()
	cfg.EmbedDim = 2
	cfg.EmbedBatchSize = 3
	cfg.EmbedWorkers = 2
	return NewManager(cfg, store, &rowEmbedder{}, logger.Default())
}

func TestBuild(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	entries := testEntries(7)

	if err := m.Build(context.Background(), entries); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if store.createCfg.VectorSize != 2 {
		t.Errorf("VectorSize = %d, want 2", store.createCfg.VectorSize)
	}

	points := store.collections[m.Collection()]
	if len(points) != 7 {
		t.Fatalf("stored points = %d, want 7", len(points))
	}

	// Point IDs are corpus row positions.
	seen := make(map[uint64]qdrant.Point)
	for _, p := range points {
		seen[p.ID] = p
	}
	for row := 0; row < 7; row++ {
		p, ok := seen[uint64(row)]
		if !ok {
			t.Fatalf("missing point for row %d", row)
		}
		if p.Payload.Row != row {
			t.Errorf("point %d payload row = %d", row, p.Payload.Row)
		}
		if p.Payload.Question != fmt.Sprintf("question %d", row) {
			t.Errorf("point %d question = %q", row, p.Payload.Question)
		}
		if len(p.Vector) != 2 {
			t.Errorf("point %d vector len = %d, want 2", row, len(p.Vector))
		}
	}
}

func TestBuild_EmptyCorpus(t *testing.T) {
	m := newTestManager(newFakeStore())

	err := m.Build(context.Background(), nil)
	if !apperrors.IsCode(err, apperrors.CodeCorpusUnavailable) {
		t.Errorf("error = %v, want corpus unavailable", err)
	}
}

func TestBuild_ReplacesStaleCollection(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)

	if err := m.Build(context.Background(), testEntries(5)); err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	if err := m.Build(context.Background(), testEntries(3)); err != nil {
		t.Fatalf("second Build() error = %v", err)
	}

	if store.deletes != 1 {
		t.Errorf("deletes = %d, want 1", store.deletes)
	}

	// The rebuilt collection holds exactly the new corpus; no stale
	// rows survive.
	if got := len(store.collections[m.Collection()]); got != 3 {
		t.Errorf("points after rebuild = %d, want 3", got)
	}
}

func TestExists(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)

	exists, err := m.Exists(context.Background())
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true before build")
	}

	// An empty collection does not count as a usable index.
	store.CreateCollection(context.Background(), qdrant.DefaultCollectionConfig(m.Collection()))
	exists, err = m.Exists(context.Background())
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for empty collection")
	}

	if err := m.Build(context.Background(), testEntries(2)); err != nil {
		t.Fatal(err)
	}
	exists, err = m.Exists(context.Background())
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false after build")
	}
}

func TestLoad_NotFound(t *testing.T) {
	m := newTestManager(newFakeStore())

	err := m.Load(context.Background())
	if !apperrors.IsIndexNotFound(err) {
		t.Errorf("Load() error = %v, want index not found", err)
	}
}

func TestEnsure_BuildsWhenMissing(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)

	if err := m.Ensure(context.Background(), testEntries(4)); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if got := len(store.collections[m.Collection()]); got != 4 {
		t.Errorf("points = %d, want 4", got)
	}
}

func TestEnsure_LoadsCachedIndex(t *testing.T) {
	store := newFakeStore()

	cfg := DefaultConfig()
	cfg.EmbedDim = 2
	embedder := &rowEmbedder{}
	m := NewManager(cfg, store, embedder, logger.Default())

	if err := m.Build(context.Background(), testEntries(4)); err != nil {
		t.Fatal(err)
	}
	callsAfterBuild := embedder.calls

	// Second Ensure must attach without re-embedding.
	if err := m.Ensure(context.Background(), testEntries(4)); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if embedder.calls != callsAfterBuild {
		t.Errorf("embedder calls = %d, want %d (no recompute)", embedder.calls, callsAfterBuild)
	}
}

func TestEnsure_CacheDisabledAlwaysBuilds(t *testing.T) {
	store := newFakeStore()

	cfg := DefaultConfig()
	cfg.UseCache = false
	cfg.EmbedDim = 2
	embedder := &rowEmbedder{}
	m := NewManager(cfg, store, embedder, logger.Default())

	if err := m.Ensure(context.Background(), testEntries(4)); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := embedder.calls

	if err := m.Ensure(context.Background(), testEntries(4)); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if embedder.calls <= callsAfterFirst {
		t.Error("Ensure with cache disabled should rebuild and re-embed")
	}
}

func TestRebuild(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)

	if err := m.Build(context.Background(), testEntries(5)); err != nil {
		t.Fatal(err)
	}
	if err := m.Rebuild(context.Background(), testEntries(2)); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	if got := len(store.collections[m.Collection()]); got != 2 {
		t.Errorf("points after Rebuild = %d, want 2", got)
	}
}
