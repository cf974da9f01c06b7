// cmd/application-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"application-workflow/internal/api"
	"application-workflow/internal/api/handlers"
	"application-workflow/internal/api/middleware"
	"application-workflow/internal/application/analysis"
	"application-workflow/internal/application/drafts"
	"application-workflow/internal/application/postings"
	"application-workflow/internal/application/questions"
	"application-workflow/internal/application/submissions"
	"application-workflow/internal/common/aws"
	"application-workflow/internal/common/camunda"
	"application-workflow/internal/common/config"
	"application-workflow/internal/common/database"
	"application-workflow/internal/common/llm"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/observability"

	ns "application-workflow/internal/workers/application/notify-submission"
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting application server...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.App.Name, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	checks := map[string]handlers.Check{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}

	postingService := postings.NewService(pg.DB, redis.Client,
		time.Duration(cfg.Database.Redis.PostingTTL)*time.Second, log)
	draftService := drafts.NewService(pg.DB, log)

	deps := submissions.Deps{
		Repository:    submissions.NewRepository(pg.DB, log),
		Idempotency:   submissions.NewIdempotencyStore(redis.Client,
			time.Duration(cfg.Database.Redis.IdempotencyTTL)*time.Second,
			time.Duration(cfg.Database.Redis.PendingTTL)*time.Second),
		Postings:      postingService,
		Drafts:        draftService,
		Observability: obs,
	}

	// --- Optional: Elasticsearch ---
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			return err
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		deps.Indexer = es
		checks["elasticsearch"] = es.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Optional: Zeebe ---
	var zeebe *camunda.Client
	var notifyWorker *camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		deps.Process = zeebe
		checks["zeebe"] = zeebe.HealthCheck
		zapLog.Info("Zeebe client connected successfully")

		wcfg := config.GetWorkerConfig(cfg, ns.TaskType)
		if wcfg.Enabled {
			awsClients, err := aws.NewClients(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("failed to load AWS clients", zap.Error(err))
			}
			handler := ns.NewHandler(ns.LoadConfig(cfg), pg.DB, awsClients.SES, awsClients.SNS, log)
			notifyWorker = camunda.NewWorker(zeebe.GetClient(), ns.TaskType, wcfg.MaxJobsActive,
				config.GetDuration(wcfg.Timeout), handler, log)
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", ns.TaskType))
		}
	}

	generator, err := llm.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("failed to create generator", zap.Error(err))
	}

	submissionService := submissions.NewService(submissions.Config{
		AssessmentProcess: cfg.Camunda.AssessmentProcess,
		ApplicationIndex:  cfg.Database.Elasticsearch.ApplicationIndex,
	}, deps, log)

	limiter := middleware.NewRedisLimiter(redis.Client)
	router := api.NewRouter(api.RouterDependencies{
		HealthHandler:  handlers.NewHealthHandler(cfg.App.Name, checks),
		PostingHandler: handlers.NewPostingHandler(postingService, questions.NewService(generator, 0, log)),
		DraftHandler:   handlers.NewDraftHandler(draftService, limiter, cfg.Server.DraftRateLimit),
		ApplicationHandler: handlers.NewApplicationHandler(submissionService,
			analysis.NewService(pg.DB, generator, cfg.APIs.GenAI.Model, log),
			limiter, cfg.Server.SubmissionRateLimit),
		Logger:         log,
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	submissionService.Close()

	if notifyWorker != nil {
		notifyWorker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Application server stopped gracefully")
}
