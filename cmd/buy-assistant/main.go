// cmd/buy-assistant/main.go
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

	"buy-assistant/internal/app"
	"buy-assistant/internal/common/camunda"
	"buy-assistant/internal/common/config"
	"buy-assistant/internal/common/database"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/common/observability"
	buildcarousels "buy-assistant/internal/workers/assistant/build-carousels"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		Fields: map[string]interface{}{"service": cfg.App.Name},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting buy assistant...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability init failed, continuing without otel metrics", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(ctx)
	}()

	// --- Elasticsearch (taxonomy index) ---
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("Elasticsearch client init failed", zap.Error(err))
	}
	err = retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return esClient.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("Elasticsearch unreachable", zap.Error(err))
	}

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 5*time.Second)
	exists, err := esClient.IndexExists(indexCtx, cfg.Database.Elasticsearch.TaxonomyIndex)
	indexCancel()
	switch {
	case err != nil:
		zapLog.Warn("could not check taxonomy index", zap.Error(err))
	case !exists:
		zapLog.Warn("taxonomy index not found, every category will be unmatched",
			zap.String("index", cfg.Database.Elasticsearch.TaxonomyIndex))
	}

	// --- Redis (optional listing cache) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Enabled {
		redisClient = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		}, 3, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("Redis unavailable, listing cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	assistant := app.New(app.Deps{
		Config:        cfg,
		Logger:        log,
		Elasticsearch: esClient,
		Redis:         redisClient,
		Observability: obs,
	})

	// --- Zeebe job worker (optional surface) ---
	var jobWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.ConnectionTimeout))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("Zeebe unreachable", zap.Error(err))
		}
		defer zeebe.Close()

		workerCfg := config.GetWorkerConfig(cfg, config.WorkerBuildCarousels)
		if workerCfg.Enabled {
			jobWorker = camunda.StartWorker(
				zeebe.GetClient(),
				buildcarousels.TaskType,
				workerCfg.MaxJobsActive,
				config.GetDuration(workerCfg.Timeout),
				assistant.JobHandler,
				log,
			)
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", buildcarousels.TaskType))
		}
	}

	// --- HTTP surface ---
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      assistant.Server.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}

	zapLog.Info("Buy assistant stopped")
}
