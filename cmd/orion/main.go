package main

import (
	"context"
	"time"

	"github.com/atharvwasthere/Orion/internal/chat"
	orionconfig "github.com/atharvwasthere/Orion/internal/config"
	"github.com/atharvwasthere/Orion/internal/knowledge"
	"github.com/atharvwasthere/Orion/internal/session"
	"github.com/atharvwasthere/Orion/internal/tasks"
	"github.com/atharvwasthere/Orion/pkg/config"
	"github.com/atharvwasthere/Orion/pkg/database"
	"github.com/atharvwasthere/Orion/pkg/llm"
	"github.com/atharvwasthere/Orion/pkg/logging"
	"github.com/atharvwasthere/Orion/pkg/monitoring"
	"github.com/atharvwasthere/Orion/pkg/server"
	"github.com/atharvwasthere/Orion/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("orion")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Orion (Support Chat API)")

	cfg := orionconfig.LoadConfig()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := knowledge.EnsureSchema(ctx, db, llm.DefaultEmbeddingDimensions); err != nil {
		logger.WithError(err).Fatal("Failed to ensure knowledge schema")
	}
	if err := session.EnsureSchema(ctx, db); err != nil {
		logger.WithError(err).Fatal("Failed to ensure session schema")
	}
	if recreated, err := knowledge.EnsureEmbeddingDimensions(ctx, db, llm.DefaultEmbeddingDimensions); err != nil {
		logger.WithError(err).Fatal("Failed to verify embedding dimensions")
	} else if recreated {
		logger.Warn("Embedding column dimensions changed, stored FAQ embeddings were reset")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("orion", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("orion", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
	}))

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM provider")
	}
	embeddingClient, err := llm.NewEmbeddingClient(cfg.Embedding)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize embedding client")
	}
	embedder, err := knowledge.NewEmbedder(embeddingClient)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize embedder")
	}

	knowledgeStore := knowledge.NewStore(db)
	sessionStore := session.NewStore(db)
	runner := tasks.NewRunner(logger, 0)

	assembler, err := knowledge.NewAssembler(knowledgeStore, embedder, cfg.Engine.TopK)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize context assembler")
	}
	profiles, err := knowledge.NewProfileGenerator(knowledgeStore, provider)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize profile generator")
	}
	summarizer, err := chat.NewSummarizer(sessionStore, provider)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize summarizer")
	}
	pipeline, err := chat.NewPipeline(sessionStore, assembler, provider, summarizer, runner, cfg.Engine, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize chat pipeline")
	}

	adminAPI, err := knowledge.NewAdminAPI(knowledgeStore, embedder, profiles, runner, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize knowledge admin API")
	}
	sessionHandler, err := session.NewHandler(sessionStore, knowledgeStore, summarizer, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize session handler")
	}
	chatHandler, err := chat.NewHandler(pipeline, sessionStore, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize chat handler")
	}

	// Setup router with unified monitoring (health/metrics only)
	router := server.SetupServiceRouter(logger, "orion", healthChecker, metricsCollector)
	adminAPI.RegisterRoutes(router)
	sessionHandler.RegisterRoutes(router)
	chatHandler.RegisterRoutes(router)

	serverConfig := server.DefaultConfig("orion", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}

	// Let queued profile and summary refreshes finish before exiting.
	done := make(chan struct{})
	go func() {
		runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for background tasks")
	}
}
