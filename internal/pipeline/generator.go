package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/campushelp/faq-bot/internal/llm"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/schema"
)

// promptTemplate is the fixed generation instruction. The context block
// may be empty; the instructions push the model toward suggesting the
// university contact rather than inventing an answer.
const promptTemplate = `You are a helpful university FAQ assistant for WhatsApp.

Retrieved FAQs:
%s

User Question: %s

Instructions:
1. Identify the correct intent category
2. Provide a clear, concise answer (2-3 sentences max)
3. Be conversational and friendly
4. Use information from the FAQs
5. If uncertain, suggest contacting the university

Format your response for WhatsApp messaging - keep it brief and helpful.`

// Generator produces validated structured answers.
type Generator struct {
	chat    llm.ChatProvider
	timeout time.Duration
	log     *logger.Logger
}

// NewGenerator creates a generator. timeout bounds each generation
// call; zero disables the bound.
func NewGenerator(chat llm.ChatProvider, timeout time.Duration, log *logger.Logger) *Generator {
	return &Generator{
		chat:    chat,
		timeout: timeout,
		log:     log,
	}
}

// Generate asks the model for a structured answer to question given the
// composed context. The provider is called exactly once; any retry is
// the caller's policy. Output that violates the closed intent set or
// lacks an answer fails with a schema validation error.
func (g *Generator) Generate(ctx context.Context, question, contextBlock string) (schema.Answer, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(promptTemplate, contextBlock, question)

	raw, err := g.chat.GenerateStructured(ctx, prompt, schema.ResponseFormat())
	if err != nil {
		return schema.Answer{}, err
	}

	answer, err := schema.DecodeAnswer(raw)
	if err != nil {
		g.log.WithError(err).Warn("Generation output failed schema validation")
		return schema.Answer{}, err
	}

	return answer, nil
}
