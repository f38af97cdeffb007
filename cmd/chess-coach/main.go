package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/coachbuilder"
	appcfg "github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/obslog"
)

func main() {
	if err := appcfg.LoadDotEnv(); err != nil {
		log.Fatalf(".env error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.Sync() }()
	logger := obslog.L()

	for _, w := range cfg.Warnings {
		logger.Warn("config_warning", zap.String("detail", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := coachbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deps.API.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("model", deps.Advisor.Model()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_failed", zap.Error(err))
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	logger.Info("shutdown_begin")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Warn("close_failed", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
