// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"callcenter-workers/internal/common/aws"
	"callcenter-workers/internal/common/camunda"
	"callcenter-workers/internal/common/config"
	"callcenter-workers/internal/common/database"
	"callcenter-workers/internal/common/genai"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/observability"
	"callcenter-workers/internal/workflow"
	"callcenter-workers/pkg/registry"

	// Approval Workers (3)
	rs "callcenter-workers/internal/workers/approval/resolve-status"
	sn "callcenter-workers/internal/workers/approval/send-notification"
	vd "callcenter-workers/internal/workers/approval/validate-decision"

	// Execution Workers (1)
	ea "callcenter-workers/internal/workers/execution/execute-action-item"

	// Plan Workers (1)
	ex "callcenter-workers/internal/workers/plan/extract-action-items"

	// Risk Workers (2)
	ra "callcenter-workers/internal/workers/risk/route-approval"
	sc "callcenter-workers/internal/workers/risk/score-action-item"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager", os.Getenv("JAEGER_ENDPOINT"))
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Load Stage Registry ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("stage registry load failed", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("stage registry invalid", zap.Error(err))
	}
	zapLog.Info("Stage registry loaded", zap.String("version", reg.Version))

	// --- Init External Service Clients ---
	llmClient := genai.NewClient(cfg.APIs, log)

	var sesClient *aws.SESClient
	var snsClient *aws.SNSClient
	if cfg.Notifications.Email.Enabled {
		sesClient, err = aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err = aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
	}

	store := workflow.NewPostgresStore(pg.GetDB())

	zapLog.Info("All external service clients initialized")

	var workers []*camunda.StageWorker
	startWorker := func(taskType string, handler camunda.JobHandler) {
		wcfg := cfg.Workers[taskType]
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		w := camunda.NewWorker(zeebe.GetClient(), taskType, wcfg.MaxJobsActive, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	// --- START: Register ALL 7 Workers ---

	// --- 1. Plan Workers (1) ---
	startWorker(ex.TaskType, ex.NewHandler(ex.LoadConfig(), store, log))

	// --- 2. Risk Workers (2) ---
	startWorker(sc.TaskType, sc.NewHandler(
		sc.LoadConfig(cfg, reg.OutputSchema(sc.TaskType)),
		llmClient, esClient, store, log,
	))
	startWorker(ra.TaskType, ra.NewHandler(ra.LoadConfig(cfg), redis.GetClient(), store, log))

	// --- 3. Approval Workers (3) ---
	startWorker(vd.TaskType, vd.NewHandler(vd.LoadConfig(cfg), store, log))
	startWorker(rs.TaskType, rs.NewHandler(rs.LoadConfig(cfg), store, log))
	startWorker(sn.TaskType, sn.NewHandler(
		sn.LoadConfig(cfg), store, redis.GetClient(), sesClient, snsClient, log,
	))

	// --- 4. Execution Workers (1) ---
	startWorker(ea.TaskType, ea.NewHandler(ea.LoadConfig(cfg), store, nil, log))

	zapLog.Info("All workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
