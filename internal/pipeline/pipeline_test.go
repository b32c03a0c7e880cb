package pipeline

import (
	"context"
	"testing"

	apperrors "github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/retrieval"
	"github.com/campushelp/faq-bot/internal/schema"
)

type fakeRetriever struct {
	results []retrieval.Result
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]retrieval.Result, error) {
	f.calls++
	return f.results, f.err
}

type fakeGenerator struct {
	answer      schema.Answer
	err         error
	calls       int
	lastContext string
}

func (f *fakeGenerator) Generate(ctx context.Context, question, contextBlock string) (schema.Answer, error) {
	f.calls++
	f.lastContext = contextBlock
	return f.answer, f.err
}

func TestQuery(t *testing.T) {
	retriever := &fakeRetriever{results: []retrieval.Result{
		{Intent: "Admission_Dates", Question: "When do admissions open?", Answer: "July 1st.", Score: 0.95},
	}}
	generator := &fakeGenerator{answer: schema.Answer{
		Intent: schema.IntentAdmissionDates,
		Answer: "Admissions open on July 1st.",
	}}

	p := New(retriever, generator, logger.Default())

	result, err := p.Query(context.Background(), "When do admissions open?", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if result.Response.Intent != schema.IntentAdmissionDates {
		t.Errorf("Intent = %s, want Admission_Dates", result.Response.Intent)
	}
	if len(result.Sources) != 1 {
		t.Errorf("len(Sources) = %d, want 1", len(result.Sources))
	}

	// Generation consumes the composed retrieval context.
	if generator.lastContext == "" {
		t.Error("generator should receive a non-empty context block")
	}
}

func TestQuery_WithoutSources(t *testing.T) {
	retriever := &fakeRetriever{results: []retrieval.Result{
		{Intent: "Hostel", Question: "How?", Answer: "Online."},
	}}
	generator := &fakeGenerator{answer: schema.Answer{Intent: schema.IntentHostel, Answer: "Apply online."}}

	p := New(retriever, generator, logger.Default())

	result, err := p.Query(context.Background(), "How do I apply for hostel?", false)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.Sources != nil {
		t.Errorf("Sources = %v, want nil when not requested", result.Sources)
	}
}

func TestQuery_EmptyQuestion(t *testing.T) {
	retriever := &fakeRetriever{}
	generator := &fakeGenerator{}

	p := New(retriever, generator, logger.Default())

	_, err := p.Query(context.Background(), "", true)
	if err == nil {
		t.Fatal("Query() should reject an empty question")
	}
	if !apperrors.IsCode(err, apperrors.CodeInvalidRequest) {
		t.Errorf("error = %v, want invalid request", err)
	}

	if retriever.calls != 0 {
		t.Errorf("retriever calls = %d, want 0", retriever.calls)
	}
	if generator.calls != 0 {
		t.Errorf("generator calls = %d, want 0", generator.calls)
	}
}

func TestQuery_RetrievalErrorSkipsGeneration(t *testing.T) {
	retriever := &fakeRetriever{err: apperrors.RetrievalError("search failed", nil)}
	generator := &fakeGenerator{}

	p := New(retriever, generator, logger.Default())

	_, err := p.Query(context.Background(), "anything", false)
	if err == nil {
		t.Fatal("Query() should surface retrieval errors")
	}
	if generator.calls != 0 {
		t.Errorf("generator calls = %d, want 0 after retrieval failure", generator.calls)
	}
}

func TestQuery_NoResultsStillGenerates(t *testing.T) {
	retriever := &fakeRetriever{results: nil}
	generator := &fakeGenerator{answer: schema.Answer{
		Intent: schema.IntentContact,
		Answer: "Please contact admission@university.edu.",
	}}

	p := New(retriever, generator, logger.Default())

	result, err := p.Query(context.Background(), "Something with no match", false)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if generator.calls != 1 {
		t.Errorf("generator calls = %d, want 1", generator.calls)
	}
	if generator.lastContext != "" {
		t.Errorf("context = %q, want empty for no results", generator.lastContext)
	}
	if result.Response.Intent != schema.IntentContact {
		t.Errorf("Intent = %s, want Contact", result.Response.Intent)
	}
}

func TestQuery_GenerationError(t *testing.T) {
	retriever := &fakeRetriever{results: []retrieval.Result{{Intent: "Hostel", Question: "q", Answer: "a"}}}
	generator := &fakeGenerator{err: apperrors.SchemaValidationError("unknown intent")}

	p := New(retriever, generator, logger.Default())

	_, err := p.Query(context.Background(), "anything", false)
	if !apperrors.IsSchemaValidation(err) {
		t.Errorf("error = %v, want schema validation", err)
	}
}
