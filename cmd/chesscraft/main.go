package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/chesscraft-go/internal/app"
	"github.com/park285/chesscraft-go/internal/config"
	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	obslog.L().Info("chesscraft_start",
		zap.String("host", cfg.HostBaseURL),
		zap.String("store", cfg.StoreBackend),
		zap.String("data_dir", cfg.DataDir),
		zap.String("config_file", cfg.File),
	)

	runErr := a.Run(ctx)
	stop()
	<-a.Loop.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		obslog.L().Warn("shutdown_error", zap.Error(err))
	}
	if runErr != nil {
		obslog.L().Error("chesscraft_exit", zap.Error(runErr))
		os.Exit(1)
	}
	obslog.L().Info("chesscraft_stop")
}
