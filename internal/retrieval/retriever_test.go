package retrieval

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/qdrant"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeSearcher struct {
	results    []qdrant.SearchResult
	err        error
	collection string
	req        qdrant.SearchRequest
}

func (f *fakeSearcher) DenseSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error) {
	f.collection = collection
	f.req = req
	return f.results, f.err
}

func testResults() []qdrant.SearchResult {
	return []qdrant.SearchResult{
		{ID: 0, Score: 0.95, Vector: []float32{1, 0}, Payload: qdrant.FAQPayload{
			Intent: "Admission_Dates", Question: "When do admissions open?", Answer: "July 1st.", Row: 0,
		}},
		{ID: 3, Score: 0.80, Vector: []float32{0.9, 0.1}, Payload: qdrant.FAQPayload{
			Intent: "Admission_Dates", Question: "What is the deadline?", Answer: "August 15th.", Row: 3,
		}},
		{ID: 7, Score: 0.60, Vector: []float32{0, 1}, Payload: qdrant.FAQPayload{
			Intent: "Scholarship", Question: "Any scholarships?", Answer: "Merit-based.", Row: 7,
		}},
	}
}

func TestRetrieve(t *testing.T) {
	searcher := &fakeSearcher{results: testResults()}
	embedder := &fakeEmbedder{vec: []float32{1, 0}}

	r := New(Config{TopK: 2, FetchK: 10, MMRLambda: 0.7}, searcher, embedder, "faq_collection", logger.Default())

	results, err := r.Retrieve(context.Background(), "When do admissions open?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Intent != "Admission_Dates" {
		t.Errorf("results[0].Intent = %s, want Admission_Dates", results[0].Intent)
	}
	if results[0].Score != 0.95 {
		t.Errorf("results[0].Score = %v, want 0.95", results[0].Score)
	}

	if searcher.collection != "faq_collection" {
		t.Errorf("searched collection = %s, want faq_collection", searcher.collection)
	}
	if searcher.req.Limit != 10 {
		t.Errorf("search limit = %d, want fetch_k 10", searcher.req.Limit)
	}
	if !searcher.req.WithVectors {
		t.Error("search should request vectors for the MMR pass")
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	searcher := &fakeSearcher{results: testResults()}
	embedder := &fakeEmbedder{err: errors.New("provider down")}

	r := New(DefaultConfig(), searcher, embedder, "faq_collection", logger.Default())

	_, err := r.Retrieve(context.Background(), "anything")
	if err == nil {
		t.Fatal("Retrieve() should surface embed errors")
	}
	if !apperrors.IsCode(err, apperrors.CodeRetrieval) {
		t.Errorf("error = %v, want retrieval error", err)
	}
}

func TestRetrieve_SearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection refused")}
	embedder := &fakeEmbedder{vec: []float32{1, 0}}

	r := New(DefaultConfig(), searcher, embedder, "faq_collection", logger.Default())

	_, err := r.Retrieve(context.Background(), "anything")
	if err == nil {
		t.Fatal("Retrieve() should surface search errors")
	}
	if !apperrors.IsCode(err, apperrors.CodeRetrieval) {
		t.Errorf("error = %v, want retrieval error", err)
	}
}

func TestRetrieve_FewerCandidatesThanTopK(t *testing.T) {
	searcher := &fakeSearcher{results: testResults()[:1]}
	embedder := &fakeEmbedder{vec: []float32{1, 0}}

	r := New(Config{TopK: 3, FetchK: 10, MMRLambda: 0.7}, searcher, embedder, "faq_collection", logger.Default())

	results, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
}

func TestNew_ConfigFallbacks(t *testing.T) {
	r := New(Config{TopK: 5, FetchK: 2}, &fakeSearcher{}, &fakeEmbedder{}, "c", logger.Default())

	if r.cfg.FetchK != 5 {
		t.Errorf("FetchK = %d, want raised to TopK 5", r.cfg.FetchK)
	}

	r = New(Config{MMRLambda: 2}, &fakeSearcher{}, &fakeEmbedder{}, "c", logger.Default())
	if r.cfg.MMRLambda != 0.7 {
		t.Errorf("MMRLambda = %v, want default 0.7", r.cfg.MMRLambda)
	}
}
