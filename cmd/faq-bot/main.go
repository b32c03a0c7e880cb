// Package main provides the faq-bot binary.
// It answers university FAQ questions over an interactive terminal
// session or a WhatsApp webhook server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campushelp/faq-bot/internal/bot"
	"github.com/campushelp/faq-bot/internal/bus"
	"github.com/campushelp/faq-bot/internal/chat"
	"github.com/campushelp/faq-bot/internal/config"
	"github.com/campushelp/faq-bot/internal/convlog"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
	"github.com/campushelp/faq-bot/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "faq-bot",
		Short: "University FAQ RAG chatbot",
		Long: `faq-bot answers university FAQ questions with retrieval-augmented
generation over a CSV knowledge base.

Modes:
  chat       Interactive terminal session
  serve      WhatsApp webhook server
  init       Rebuild the semantic index from the corpus
  analytics  Print conversation statistics

Examples:
  faq-bot chat                         # Talk to the bot in the terminal
  faq-bot serve --port 5000            # Start the webhook server
  faq-bot init                         # Force a full index rebuild
  faq-bot analytics                    # Dump usage statistics as JSON`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive terminal session",
		RunE:  runChat,
	}
	chatCmd.Flags().String("corpus", "", "corpus CSV path (overrides config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WhatsApp webhook server",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	serveCmd.Flags().String("host", "", "bind address (overrides config)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Rebuild the semantic index from the corpus",
		RunE:  runInit,
	}
	initCmd.Flags().String("corpus", "", "corpus CSV path (overrides config)")

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print conversation statistics",
		RunE:  runAnalytics,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("faq-bot %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(chatCmd, serveCmd, initCmd, analyticsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by all modes.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if corpusPath, _ := cmd.Flags().GetString("corpus"); corpusPath != "" {
		cfg.Corpus.Path = corpusPath
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.Log.Format)

	return cfg, log, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	if err := b.Init(ctx); err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}

	return chat.New(b, os.Stdin, os.Stdout, log).Run(ctx)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	if err := b.Init(ctx); err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}

	store, err := convlog.NewStore(cfg.ConvLog, log)
	if err != nil {
		return fmt.Errorf("failed to create conversation log: %w", err)
	}

	eventBus, err := bus.NewBus(cfg.Bus)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srvCfg.Version = version
	srvCfg.RateLimit = cfg.Security.RateLimit

	srv, err := server.New(srvCfg, cfg, b, store, eventBus, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return srv.Stop(context.Background())
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	log.Info("Rebuilding semantic index...", "collection", cfg.Index.Collection)
	if err := b.Rebuild(ctx); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	// Let running servers know the collection was replaced.
	eventBus, err := bus.NewBus(cfg.Bus)
	if err == nil {
		event := bus.NewEvent(bus.TopicIndexRebuilt, "init", map[string]any{
			"collection": cfg.Index.Collection,
			"entries":    len(b.Entries()),
		})
		if perr := eventBus.Publish(ctx, bus.TopicIndexRebuilt, event); perr != nil {
			log.WithError(perr).Warn("Failed to publish rebuild event")
		}
		eventBus.Close()
	}

	log.Info("Index rebuilt", "entries", len(b.Entries()))
	return nil
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := convlog.NewStore(cfg.ConvLog, log)
	if err != nil {
		return fmt.Errorf("failed to open conversation log: %w", err)
	}
	defer store.Close()

	entries, err := store.Entries(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read conversation log: %w", err)
	}

	stats := convlog.Fold(entries)

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println("\n📊 Conversation Analytics")
	fmt.Println(string(out))
	return nil
}
