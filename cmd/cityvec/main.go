package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/bootstrap"
	"github.com/kailas-cloud/cityvec/internal/config"
	logpkg "github.com/kailas-cloud/cityvec/internal/logger"
	chiTransport "github.com/kailas-cloud/cityvec/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cityvec/internal/usecase/health"
	"github.com/kailas-cloud/cityvec/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cityvec API server",
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("model", cfg.Model.ID),
		zap.Strings("countries", cfg.Catalog.CountryCodes),
	)

	// Ingest, join and embed on first start; later starts load the cached tables.
	ctx := context.Background()
	sess, emb, cleanup, err := bootstrap.OpenSession(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open session", zap.Error(err))
	}
	defer cleanup()

	healthSvc := healthuc.New(sess, emb.Corpus, sess)
	server := chiTransport.NewServer(sess, healthSvc, chiTransport.Options{
		DefaultTopK: cfg.HTTP.DefaultTopK,
		MaxTopK:     cfg.HTTP.MaxTopK,
		APIKeys:     cfg.HTTP.APIKeys,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
