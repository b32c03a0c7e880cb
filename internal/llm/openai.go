package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campushelp/faq-bot/internal/pkg/errors"
)

// OpenAIConfig holds settings for an OpenAI-compatible API endpoint.
type OpenAIConfig struct {
	// BaseURL is the API base (works with any OpenAI-compatible server).
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// EmbedModel is the embedding model name.
	EmbedModel string

	// ChatModel is the generation model name.
	ChatModel string

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Timeout:    60 * time.Second,
	}
}

// OpenAIClient talks to an OpenAI-compatible API over HTTP.
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIConfig().BaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultOpenAIConfig().EmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultOpenAIConfig().ChatModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOpenAIConfig().Timeout
	}
	if cfg.APIKey == "" {
		return nil, errors.ValidationError("llm api key is required")
	}

	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed generates one embedding per input text, ordered by input index.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embeddingResponse
	err := c.post(ctx, "/embeddings", embeddingRequest{
		Model: c.cfg.EmbedModel,
		Input: texts,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.LLMError(
			fmt.Sprintf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts)), nil)
	}

	// Order by index; the API does not guarantee input order.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, errors.LLMError(fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		embeddings[d.Index] = d.Embedding
	}

	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (c *OpenAIClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, errors.LLMError("empty embedding returned", nil)
	}
	return embeddings[0], nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerateStructured submits a single generation request constrained to
// responseFormat and returns the raw JSON reply content.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, prompt string, responseFormat map[string]any) (json.RawMessage, error) {
	var resp chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: responseFormat,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.LLMError("generation returned no choices", nil)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != nil && *choice.Message.Refusal != "" {
		return nil, errors.SchemaValidationError("model refused to produce structured output")
	}
	if choice.Message.Content == "" {
		return nil, errors.SchemaValidationError("generation returned empty structured output")
	}

	return json.RawMessage(choice.Message.Content), nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return errors.LLMError("marshaling request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.LLMError("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.LLMError(fmt.Sprintf("calling %s", path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.LLMError("reading response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.LLMError(
			fmt.Sprintf("%s returned status %d: %s", path, resp.StatusCode, truncate(string(data), 200)), nil)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.LLMError("decoding response", err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
