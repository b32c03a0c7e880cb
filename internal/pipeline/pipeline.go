// Package pipeline composes retrieval, context composition, and
// structured generation into the single query operation the channel
// adapters call.
package pipeline

import (
	"context"

	"github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/retrieval"
	"github.com/campushelp/faq-bot/internal/schema"
)

// Retriever yields relevant corpus entries for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Result, error)
}

// AnswerGenerator produces a validated structured answer.
type AnswerGenerator interface {
	Generate(ctx context.Context, question, contextBlock string) (schema.Answer, error)
}

// QueryResult is the unit returned to callers.
type QueryResult struct {
	Response schema.Answer      `json:"response"`
	Sources  []retrieval.Result `json:"sources,omitempty"`
}

// Pipeline orchestrates retrieve -> compose -> generate. The semantic
// index behind the retriever is acquired once at construction time and
// reused for the life of the process.
type Pipeline struct {
	retriever Retriever
	generator AnswerGenerator
	log       *logger.Logger
}

// New creates a pipeline.
func New(retriever Retriever, generator AnswerGenerator, log *logger.Logger) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		log:       log,
	}
}

// Query answers question. Retrieval strictly precedes generation; the
// generator never runs against absent context except when retrieval
// legitimately finds nothing, in which case the composed context is
// empty and the prompt instructions steer the model toward a fallback.
func (p *Pipeline) Query(ctx context.Context, question string, returnSources bool) (QueryResult, error) {
	if question == "" {
		return QueryResult{}, errors.InvalidRequestError("question must not be empty")
	}

	results, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		return QueryResult{}, err
	}

	contextBlock := ComposeContext(results)

	answer, err := p.generator.Generate(ctx, question, contextBlock)
	if err != nil {
		return QueryResult{}, err
	}

	p.log.Debug("Answered question", "intent", answer.Intent.String(), "sources", len(results))

	result := QueryResult{Response: answer}
	if returnSources {
		result.Sources = results
	}
	return result, nil
}
