// Package bot assembles the corpus, index, retriever, and generator
// into a single FAQ answering service shared by all entry points.
package bot

import (
	"context"
	"fmt"

	"github.com/campushelp/faq-bot/internal/bridge"
	"github.com/campushelp/faq-bot/internal/config"
	"github.com/campushelp/faq-bot/internal/corpus"
	"github.com/campushelp/faq-bot/internal/index"
	"github.com/campushelp/faq-bot/internal/llm"
	"github.com/campushelp/faq-bot/internal/pipeline"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/qdrant"
	"github.com/campushelp/faq-bot/internal/retrieval"
)

// Bot is the FAQ answering service. Construct it once and share it;
// the embedding provider it holds is the one the index was built
// with, so all queries must flow through the same instance.
type Bot struct {
	cfg *config.Config
	log *logger.Logger

	entries corpus.Entries
	qdrant  *qdrant.Client
	llm     *llm.OpenAIClient
	index   *index.Manager
	pipe    *pipeline.Pipeline
	bridge  *bridge.Bridge
}

// New wires the bot from configuration. The corpus is loaded eagerly
// so a missing or malformed CSV fails construction rather than the
// first query.
func New(cfg *config.Config, log *logger.Logger) (*Bot, error) {
	entries, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}

	qdrantCfg := qdrant.DefaultClientConfig()
	if cfg.Qdrant.URL != "" {
		host, port, err := qdrant.ParseURL(cfg.Qdrant.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
		}
		qdrantCfg.Host = host
		qdrantCfg.Port = port
	}
	if cfg.Qdrant.APIKey != "" {
		qdrantCfg.APIKey = cfg.Qdrant.APIKey
	}
	if cfg.Qdrant.Timeout > 0 {
		qdrantCfg.Timeout = cfg.Qdrant.Timeout
	}

	qc, err := qdrant.NewClient(qdrantCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	llmCfg := llm.DefaultOpenAIConfig()
	llmCfg.APIKey = cfg.LLM.APIKey
	if cfg.LLM.BaseURL != "" {
		llmCfg.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.LLM.EmbedModel != "" {
		llmCfg.EmbedModel = cfg.LLM.EmbedModel
	}
	if cfg.LLM.ChatModel != "" {
		llmCfg.ChatModel = cfg.LLM.ChatModel
	}
	if cfg.LLM.Timeout > 0 {
		llmCfg.Timeout = cfg.LLM.Timeout
	}

	lc, err := llm.NewOpenAIClient(llmCfg)
	if err != nil {
		qc.Close()
		return nil, err
	}

	idx := index.NewManager(index.Config{
		Collection:     cfg.Index.Collection,
		UseCache:       cfg.Index.UseCache,
		EmbedDim:       cfg.Index.EmbedDim,
		EmbedBatchSize: cfg.Index.EmbedBatchSize,
		EmbedWorkers:   cfg.Index.EmbedWorkers,
	}, qc, lc, log)

	retriever := retrieval.New(retrieval.Config{
		TopK:      cfg.Retrieval.TopK,
		FetchK:    cfg.Retrieval.FetchK,
		MMRLambda: float32(cfg.Retrieval.MMRLambda),
	}, qc, lc, idx.Collection(), log)

	generator := pipeline.NewGenerator(lc, cfg.LLM.GenerationTimeout, log)

	b := &Bot{
		cfg:     cfg,
		log:     log,
		entries: entries,
		qdrant:  qc,
		llm:     lc,
		index:   idx,
		pipe:    pipeline.New(retriever, generator, log),
		bridge:  bridge.New(log),
	}
	b.bridge.Start()

	return b, nil
}

// Init makes the semantic index available, attaching to a persisted
// collection when caching is enabled and building it otherwise.
func (b *Bot) Init(ctx context.Context) error {
	return b.index.Ensure(ctx, b.entries)
}

// Rebuild discards any persisted index and rebuilds it from the corpus.
func (b *Bot) Rebuild(ctx context.Context) error {
	return b.index.Rebuild(ctx, b.entries)
}

// Query answers a question through the retrieval pipeline. Callers may
// invoke it from any goroutine, including from inside another bridge
// task.
func (b *Bot) Query(ctx context.Context, question string, returnSources bool) (pipeline.QueryResult, error) {
	return bridge.RunTyped(b.bridge, ctx, func(ctx context.Context) (pipeline.QueryResult, error) {
		return b.pipe.Query(ctx, question, returnSources)
	})
}

// QueryAsync schedules a query and returns immediately; the outcome
// arrives on the returned channel.
func (b *Bot) QueryAsync(ctx context.Context, question string, returnSources bool) (<-chan bridge.Outcome, error) {
	return b.bridge.Submit(ctx, func(ctx context.Context) (any, error) {
		return b.pipe.Query(ctx, question, returnSources)
	})
}

// Intents returns the corpus intent labels in first-seen order.
func (b *Bot) Intents() []string {
	return b.entries.Intents()
}

// Entries returns the loaded corpus.
func (b *Bot) Entries() corpus.Entries {
	return b.entries
}

// Close releases the bridge and the vector store connection.
func (b *Bot) Close(ctx context.Context) error {
	err := b.bridge.Close(ctx)
	if cerr := b.qdrant.Close(); err == nil {
		err = cerr
	}
	return err
}
