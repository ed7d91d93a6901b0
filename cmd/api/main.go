package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kagura-engine/kagura/internal/config"
	"github.com/kagura-engine/kagura/internal/handlers"
	"github.com/kagura-engine/kagura/internal/logger"
	"github.com/kagura-engine/kagura/internal/middleware"
	"github.com/kagura-engine/kagura/internal/services"
	"github.com/kagura-engine/kagura/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Kagura API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"story_file", cfg.StoryFile)

	store, err := storage.NewRedisStore(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	service := services.NewGameService(store, cfg.DataDir, cfg.PluginCallTimeout, log)

	// Open the configured story package on startup; clients can still open
	// another one over the API.
	openCtx, openCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer openCancel()
	if info, err := service.Open(openCtx, cfg.StoryFile); err != nil {
		log.Warn("No story package opened on startup", "file", cfg.StoryFile, "error", err)
	} else {
		log.Info("Story package ready", "title", info.Title, "locales", info.Locales)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	gameHandler := handlers.NewGameHandler(service, log)
	mux.Handle("/v1/game/", gameHandler)

	settingsHandler := handlers.NewSettingsHandler(service, log)
	mux.Handle("/v1/settings", settingsHandler)

	recordsHandler := handlers.NewRecordsHandler(service, log)
	mux.Handle("/v1/records", recordsHandler)
	mux.Handle("/v1/records/", recordsHandler)
	mux.Handle("/v1/save", recordsHandler)

	localeHandler := handlers.NewLocaleHandler(service, log)
	mux.Handle("/v1/locale/choose", localeHandler)

	sessionHandler := handlers.NewSessionHandler(service, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	service.Close()
	if err := store.Close(); err != nil {
		logger.WithError(log, err).Error("Error closing storage connection")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
