package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotedesk/internal/config"
	"quotedesk/internal/handler"
	"quotedesk/internal/service"
	"quotedesk/internal/storage"
	"quotedesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	store, err := newStorage(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to init storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("Failed to close storage: %v", err)
		}
	}()

	responder, err := service.NewResponder(cfg.Responder)
	if err != nil {
		logger.Fatalf("Failed to init responder: %v", err)
	}

	detector, err := service.NewDetector(cfg.Language)
	if err != nil {
		logger.Fatalf("Failed to init language detector: %v", err)
	}
	translator, err := service.NewTranslator(cfg.Language, cfg.Responder)
	if err != nil {
		logger.Fatalf("Failed to init translator: %v", err)
	}

	catalog := service.DefaultCatalog()
	quoteService := service.NewQuoteService(store, catalog, service.NewPricer(catalog, nil), responder,
		service.WithLanguage(detector, translator))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quoteService.StartBackups(ctx, cfg.Storage.BackupInterval)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, handler.NewQuoteHandler(quoteService))

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Quote service listening on port %d (storage=%s, responder=%s, translator=%s)",
			cfg.Server.Port, cfg.Storage.Type, cfg.Responder.Provider, cfg.Language.Translator)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	var store storage.Storage
	switch cfg.Type {
	case "memory", "":
		store = storage.NewMemoryStorage()
	case "disk":
		store = storage.NewDiskStorage(cfg.DataDir, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}
