// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"FAQBOT_HOST" yaml:"host"`
	Port int    `envconfig:"FAQBOT_PORT" yaml:"port"`

	// Corpus configuration
	Corpus CorpusConfig `yaml:"corpus"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Index configuration
	Index IndexConfig `yaml:"index"`

	// Retrieval configuration
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Conversation log configuration
	ConvLog ConvLogConfig `yaml:"conversation_log"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Twilio configuration for outbound messages
	Twilio TwilioConfig `yaml:"twilio"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// CorpusConfig holds knowledge base settings.
type CorpusConfig struct {
	Path string `envconfig:"FAQBOT_CORPUS_PATH" yaml:"path"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	URL     string        `envconfig:"QDRANT_URL" yaml:"url"`
	APIKey  string        `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	Timeout time.Duration `envconfig:"QDRANT_TIMEOUT" yaml:"timeout"`
}

// LLMConfig holds language model provider settings.
type LLMConfig struct {
	BaseURL           string        `envconfig:"FAQBOT_LLM_URL" yaml:"base_url"`
	APIKey            string        `envconfig:"OPENAI_API_KEY" yaml:"api_key"`
	EmbedModel        string        `envconfig:"FAQBOT_EMBED_MODEL" yaml:"embed_model"`
	ChatModel         string        `envconfig:"FAQBOT_CHAT_MODEL" yaml:"chat_model"`
	Timeout           time.Duration `envconfig:"FAQBOT_LLM_TIMEOUT" yaml:"timeout"`
	GenerationTimeout time.Duration `envconfig:"FAQBOT_GENERATION_TIMEOUT" yaml:"generation_timeout"`
}

// IndexConfig holds semantic index settings.
type IndexConfig struct {
	Collection     string `envconfig:"FAQBOT_COLLECTION" yaml:"collection"`
	UseCache       bool   `envconfig:"FAQBOT_USE_CACHE" yaml:"use_cache"`
	EmbedDim       int    `envconfig:"FAQBOT_EMBED_DIM" yaml:"embed_dim"`
	EmbedBatchSize int    `envconfig:"FAQBOT_EMBED_BATCH_SIZE" yaml:"embed_batch_size"`
	EmbedWorkers   int    `envconfig:"FAQBOT_EMBED_WORKERS" yaml:"embed_workers"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK      int     `envconfig:"FAQBOT_TOP_K" yaml:"top_k"`
	FetchK    int     `envconfig:"FAQBOT_FETCH_K" yaml:"fetch_k"`
	MMRLambda float64 `envconfig:"FAQBOT_MMR_LAMBDA" yaml:"mmr_lambda"`
}

// ConvLogConfig holds conversation log settings.
type ConvLogConfig struct {
	Backend  string `envconfig:"FAQBOT_CONVLOG_BACKEND" yaml:"backend"`
	Path     string `envconfig:"FAQBOT_CONVLOG_PATH" yaml:"path"`
	RedisURL string `envconfig:"FAQBOT_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"FAQBOT_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"FAQBOT_KAFKA_BROKERS" yaml:"kafka_brokers"`
}

// TwilioConfig holds outbound messaging credentials. Inbound webhook
// handling works without them; only the admin relay needs these.
type TwilioConfig struct {
	AccountSID  string `envconfig:"TWILIO_ACCOUNT_SID" yaml:"account_sid"`
	AuthToken   string `envconfig:"TWILIO_AUTH_TOKEN" yaml:"auth_token"`
	PhoneNumber string `envconfig:"TWILIO_PHONE_NUMBER" yaml:"phone_number"`
	BaseURL     string `envconfig:"TWILIO_BASE_URL" yaml:"base_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"FAQBOT_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"FAQBOT_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit int `envconfig:"FAQBOT_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 5000

	cfg.Corpus = CorpusConfig{
		Path: "data/synthetic_faq_dataset.csv",
	}

	cfg.Qdrant = QdrantConfig{
		URL:     "http://localhost:6334",
		Timeout: 30 * time.Second,
	}

	cfg.LLM = LLMConfig{
		BaseURL:           "https://api.openai.com/v1",
		EmbedModel:        "text-embedding-3-small",
		ChatModel:         "gpt-4o-mini",
		Timeout:           60 * time.Second,
		GenerationTimeout: 30 * time.Second,
	}

	cfg.Index = IndexConfig{
		Collection:     "faq_collection",
		UseCache:       true,
		EmbedDim:       1536,
		EmbedBatchSize: 32,
		EmbedWorkers:   4,
	}

	cfg.Retrieval = RetrievalConfig{
		TopK:      3,
		FetchK:    10,
		MMRLambda: 0.7,
	}

	cfg.ConvLog = ConvLogConfig{
		Backend:  "file",
		Path:     "data/whatsapp_logs.csv",
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Twilio = TwilioConfig{
		BaseURL: "https://api.twilio.com",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit: 0,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Corpus.Path == "" {
		errs = append(errs, "corpus path must not be empty")
	}

	if c.Index.Collection == "" {
		errs = append(errs, "index collection must not be empty")
	}

	if c.Index.EmbedDim < 1 {
		errs = append(errs, "embed_dim must be positive")
	}

	if c.Index.EmbedBatchSize < 1 {
		errs = append(errs, "embed_batch_size must be positive")
	}

	if c.Retrieval.TopK < 1 {
		errs = append(errs, "top_k must be positive")
	}

	if c.Retrieval.FetchK < c.Retrieval.TopK {
		errs = append(errs, "fetch_k must be at least top_k")
	}

	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		errs = append(errs, "mmr_lambda must be between 0 and 1")
	}

	validBackends := map[string]bool{"file": true, "redis": true}
	if !validBackends[c.ConvLog.Backend] {
		errs = append(errs, fmt.Sprintf("invalid conversation log backend: %s (must be file or redis)", c.ConvLog.Backend))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
