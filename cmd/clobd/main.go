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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	match "github.com/openclob/openclob"
	"github.com/openclob/openclob/config"
	"github.com/openclob/openclob/server"
)

func main() {
	bootstrapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	cfg, _, err := config.LoadAndWatch("clobd", bootstrapLogger, nil)
	if err != nil {
		bootstrapLogger.Fatal("load config", zap.Error(err))
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		bootstrapLogger.Fatal("build logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	match.SetLogger(logger)
	gin.SetMode(gin.ReleaseMode)

	book := match.NewOrderBook(match.WithEventPublisher(server.NewMetricsPublisher()))
	go func() {
		_ = book.Start()
	}()

	srv := server.New(book, logger).HTTPServer(cfg.HTTP.Addr)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := book.Shutdown(ctx); err != nil {
		logger.Error("order book shutdown", zap.Error(err))
	}
}
