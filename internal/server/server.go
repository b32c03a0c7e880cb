// Package server provides the HTTP webhook server that answers
// WhatsApp messages through the FAQ pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/campushelp/faq-bot/internal/bus"
	"github.com/campushelp/faq-bot/internal/config"
	"github.com/campushelp/faq-bot/internal/convlog"
	"github.com/campushelp/faq-bot/internal/pipeline"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/pkg/middleware"
)

// Answerer is the part of the bot the server needs.
type Answerer interface {
	Query(ctx context.Context, question string, returnSources bool) (pipeline.QueryResult, error)
	Intents() []string
}

// Server is the webhook HTTP server.
type Server struct {
	cfg Config
	log *logger.Logger

	httpServer *http.Server

	bot     Answerer
	convlog convlog.Store
	bus     bus.Bus
	twilio  *TwilioClient
	limiter *middleware.RateLimiter

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit int
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            5000,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates a server around an already-constructed bot. The bus
// carries one event per answered question; the conversation log
// subscribes to it so appends stay single-writer.
func New(cfg Config, appCfg *config.Config, b Answerer, store convlog.Store, eventBus bus.Bus, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		bot:     b,
		convlog: store,
		bus:     eventBus,
	}

	if appCfg.Twilio.AccountSID != "" {
		s.twilio = NewTwilioClient(appCfg.Twilio)
	}

	if cfg.RateLimit > 0 {
		rlCfg := middleware.DefaultRateLimiterConfig()
		rlCfg.RequestsPerSecond = float64(cfg.RateLimit)
		rlCfg.Burst = cfg.RateLimit * 2
		s.limiter = middleware.NewRateLimiter(rlCfg)
	}

	if err := s.subscribeInteractions(); err != nil {
		return nil, fmt.Errorf("subscribing interaction recorder: %w", err)
	}

	if err := s.subscribeIndexRebuilt(); err != nil {
		return nil, fmt.Errorf("subscribing rebuild notifications: %w", err)
	}

	return s, nil
}

// subscribeIndexRebuilt surfaces out-of-band index rebuilds in the
// server log. The collection is shared, so a rebuild by the init
// command takes effect immediately for in-flight queries.
func (s *Server) subscribeIndexRebuilt() error {
	return s.bus.Subscribe(context.Background(), bus.TopicIndexRebuilt, func(ctx context.Context, event bus.Event) error {
		s.log.Info("Semantic index was rebuilt", "source", event.Source)
		return nil
	})
}

// subscribeInteractions wires the conversation log behind the bus so
// the store sees one append per published interaction.
func (s *Server) subscribeInteractions() error {
	return s.bus.Subscribe(context.Background(), bus.TopicInteraction, func(ctx context.Context, event bus.Event) error {
		// The payload may arrive as a decoded map when the event
		// crossed a broker, so round-trip through JSON.
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		var entry convlog.Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		if err := s.convlog.Append(ctx, entry); err != nil {
			s.log.WithError(err).Error("Failed to record interaction")
			return err
		}
		return nil
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	mux := s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("Starting webhook server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP shutdown error", "error", err)
	}

	if s.bus != nil {
		s.bus.Close()
	}
	if s.convlog != nil {
		s.convlog.Close()
	}

	s.started = false
	s.log.Info("Server stopped")

	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/analytics", s.handleAnalytics)
	mux.HandleFunc("/send-message", s.handleSendMessage)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}

	return wrapWithLogging(handler, s.log)
}

// wrapWithLogging returns a mux with logging middleware.
func wrapWithLogging(handler http.Handler, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		handler.ServeHTTP(wrapped, r)

		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
	return mux
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Health returns the server health status.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
