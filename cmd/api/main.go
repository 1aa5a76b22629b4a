package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"housing-data-go/pkg/api"
	"housing-data-go/pkg/chat"
	"housing-data-go/pkg/config"
	"housing-data-go/pkg/dataset"
	"housing-data-go/pkg/db"
	"housing-data-go/pkg/pipeline"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Application database (users, chat history, run log)
	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}

	// Ingested dataset (SQLite, replaced wholesale by each pipeline run)
	store, err := dataset.Open(cfg.Pipeline.DatasetPath)
	if err != nil {
		logger.Fatal("failed to open dataset store", zap.Error(err))
	}
	defer store.Close()

	// Pipeline
	zillow := pipeline.NewZillowClient("", "", logger)
	hud := pipeline.NewHUDClient(pipeline.HUDOptions{
		APIKey:  cfg.Pipeline.HUDAPIKey,
		Year:    cfg.Pipeline.HUDYear,
		Workers: cfg.Pipeline.HUDWorkers,
	}, logger)
	census := pipeline.NewCensusClient("", logger)
	steps := pipeline.BuildSteps(zillow, hud, census, store, logger)
	orchestrator := pipeline.New(steps, database, logger)

	// Chat
	gemini, err := chat.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model, logger)
	if err != nil {
		logger.Fatal("failed to create GenAI client", zap.Error(err))
	}
	classifier := chat.NewClassifier(dataset.ColumnNames())
	engine := chat.NewEngine(store, gemini, logger)
	chatRouter := chat.NewRouter(classifier, engine, gemini, gemini, database, logger)

	router := api.NewRouter(api.Deps{
		DB:           database,
		Orchestrator: orchestrator,
		ChatRouter:   chatRouter,
		Dataset:      store,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Let an in-flight pipeline run finalize its log row
	orchestrator.Stop()
	orchestrator.Shutdown(shutdownCtx)

	logger.Info("server exited")
}
