// cmd/onboarding-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carrier-onboarding/internal/common/aws"
	"carrier-onboarding/internal/common/config"
	"carrier-onboarding/internal/common/database"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/common/observability"
	"carrier-onboarding/internal/onboarding/documents"
	"carrier-onboarding/internal/onboarding/gate"
	"carrier-onboarding/internal/onboarding/identity"
	"carrier-onboarding/internal/onboarding/payout"
	"carrier-onboarding/internal/onboarding/registry"
	"carrier-onboarding/internal/onboarding/workflow"
	"carrier-onboarding/pkg/catalog"
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting onboarding manager...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

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
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init AWS Clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	s3Client, err := aws.NewS3Client(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.S3.Bucket)
	if err != nil {
		zapLog.Fatal("s3 client init failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- Load Action Catalog ---
	actionCatalog, err := catalog.Load(cfg.Onboarding.CatalogPath)
	if err != nil {
		zapLog.Fatal("action catalog load failed", zap.Error(err),
			zap.String("path", cfg.Onboarding.CatalogPath))
	}
	zapLog.Info("Action catalog loaded",
		zap.String("version", actionCatalog.Version),
		zap.Int("actions", len(actionCatalog.Actions)),
	)

	// --- Init Storage Schema ---
	stateStore := workflow.NewPostgresStateStore(pg.DB)
	if err := stateStore.Init(ctx); err != nil {
		zapLog.Fatal("state store init failed", zap.Error(err))
	}
	finalizer := workflow.NewPostgresFinalizer(pg.DB)
	if err := finalizer.Init(ctx); err != nil {
		zapLog.Fatal("profile finalizer init failed", zap.Error(err))
	}

	// --- Wire Onboarding Components ---
	registryService := registry.NewService(
		registry.NewElasticsearchClient(esClient.Client, cfg.Onboarding.RegistryIndex),
		log.WithFields(map[string]interface{}{"component": "registry"}),
	)

	identityCoordinator := identity.NewCoordinator(
		identity.NewRedisCodeStore(redisClient.Client),
		identity.NewSESDelivery(sesClient, cfg.Integrations.AWS.SES.FromEmail),
		time.Duration(cfg.Onboarding.CodeTTLSeconds)*time.Second,
		cfg.Onboarding.CodeMaxAttempts,
		log.WithFields(map[string]interface{}{"component": "identity"}),
	)

	documentTracker := documents.NewTracker(
		documents.NewS3Storage(s3Client),
		log.WithFields(map[string]interface{}{"component": "documents"}),
	)

	payoutLinker := payout.NewLinker(
		payout.NewHTTPAccountLinker(
			cfg.Integrations.BankLink.BaseURL,
			cfg.Integrations.BankLink.APIKey,
			time.Duration(cfg.Integrations.BankLink.Timeout)*time.Millisecond,
		),
		log.WithFields(map[string]interface{}{"component": "payout"}),
	)

	var events workflow.DecisionPublisher
	if cfg.Integrations.AWS.SNS.Enabled {
		events = workflow.NewSNSDecisionPublisher(snsClient, cfg.Integrations.AWS.SNS.DecisionTopicARN)
	}

	orchestrator := workflow.New(workflow.Deps{
		Store:     stateStore,
		Registry:  registryService,
		Identity:  identityCoordinator,
		Documents: documentTracker,
		Payout:    payoutLinker,
		Finalizer: finalizer,
		Events:    events,
		Thresholds: gate.Thresholds{
			MinAuthorityYears: cfg.Onboarding.MinAuthorityYears,
			MinFleetSize:      cfg.Onboarding.MinFleetSize,
		},
		CallTimeout: time.Duration(cfg.Onboarding.CallTimeoutSeconds) * time.Second,
		Logger:      log.WithFields(map[string]interface{}{"component": "workflow"}),
	})
	zapLog.Info("Onboarding orchestrator ready")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/v1/onboarding/snapshot", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			carrierID := r.URL.Query().Get("carrierId")
			if carrierID == "" {
				http.Error(w, "carrierId query parameter is required", http.StatusBadRequest)
				return
			}
			snapshot, err := orchestrator.Snapshot(r.Context(), carrierID)
			if err != nil {
				obs.RecordAction(r.Context(), "snapshot", "error")
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			obs.RecordAction(r.Context(), "snapshot", "ok")
			obs.RecordActionDuration(r.Context(), "snapshot", time.Since(start))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(snapshot)
		})
		http.HandleFunc("/v1/onboarding/catalog", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(actionCatalog)
		})
		http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping onboarding manager...")
}
