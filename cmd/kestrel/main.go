// Kestrel - Welfare distribution fraud screening.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-welfare/kestrel/internal/anomaly"
	"github.com/opensource-welfare/kestrel/internal/api"
	"github.com/opensource-welfare/kestrel/internal/auth"
	"github.com/opensource-welfare/kestrel/internal/bus"
	"github.com/opensource-welfare/kestrel/internal/cache"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/engine"
	"github.com/opensource-welfare/kestrel/internal/metrics"
	"github.com/opensource-welfare/kestrel/internal/repository"
	"github.com/opensource-welfare/kestrel/internal/rules"
	"github.com/opensource-welfare/kestrel/internal/velocity"
	"github.com/opensource-welfare/kestrel/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	cfg.Auth.JWTSecret = os.Getenv("KESTREL_JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		// Tokens issued against an ephemeral secret die with the process.
		cfg.Auth.JWTSecret = uuid.New().String()
		slog.Warn("KESTREL_JWT_SECRET not set, using an ephemeral secret")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Auth
	authSvc, err := auth.NewService(cfg.Auth)
	if err != nil {
		slog.Error("failed to initialize auth service", "error", err)
		os.Exit(1)
	}

	// Initialize Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Initialize Velocity Service
	velocitySvc := velocity.NewService(repo, cacheImpl)
	slog.Info("velocity service initialized")

	// Initialize built-in rule evaluator
	evaluator := rules.NewEvaluator(repo, velocitySvc.Getter(), cfg.Detection, 100)
	slog.Info("rule evaluator initialized", "rules_count", len(evaluator.Rules()))

	// Initialize custom rule engine and load rules from database
	customEngine, err := rules.NewCustomEngine(100)
	if err != nil {
		slog.Error("failed to initialize custom rule engine", "error", err)
		os.Exit(1)
	}
	if err := loadRulesFromDatabase(ctx, repo, customEngine); err != nil {
		slog.Error("failed to load custom rules", "error", err)
		os.Exit(1)
	}
	slog.Info("custom rule engine initialized", "rules_count", customEngine.RulesCount())

	// Initialize anomaly model
	modelCfg := anomaly.DefaultModelConfig()
	modelCfg.Contamination = cfg.Detection.Contamination
	modelCfg.MinSamples = cfg.Detection.MinTrainingSamples
	model := anomaly.NewModel(modelCfg)

	// Initialize detection engine
	eng := engine.New(repo, busImpl, evaluator, customEngine, model, collector, cfg.Detection)

	// Train on whatever history exists; an empty store is fine.
	if trained, samples, err := eng.Train(ctx); err != nil {
		slog.Warn("initial model training failed", "error", err)
	} else if trained {
		slog.Info("anomaly model trained at startup", "samples", samples)
	} else {
		slog.Info("anomaly model untrained, scoring neutral until POST /api/ml/train")
	}

	// Initialize scan worker
	scanWorker := worker.NewWorker(busImpl, eng)
	if err := scanWorker.Start(); err != nil {
		slog.Error("failed to start scan worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, cfg.Auth, api.ServerDeps{
		Repo:     repo,
		Cache:    cacheImpl,
		Bus:      busImpl,
		Engine:   eng,
		Custom:   customEngine,
		Auth:     authSvc,
		Metrics:  collector,
		Gatherer: registry,
		Version:  Version,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop scan worker first
	if err := scanWorker.Stop(); err != nil {
		slog.Error("failed to stop scan worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// loadRulesFromDatabase loads custom rules into the engine.
// Rules are configured via POST /api/rules - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.CustomEngine) error {
	dbRules, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading custom rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no custom rules in database - configure via POST /api/rules")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  Kestrel - Welfare Distribution Fraud Screening")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST  /api/auth/register              - Create operator account")
	fmt.Println("    POST  /api/auth/login                 - Obtain access token")
	fmt.Println("    POST  /api/subjects                   - Register beneficiary (auto-scan)")
	fmt.Println("    GET   /api/subjects                   - List beneficiaries")
	fmt.Println("    POST  /api/transactions               - Record distribution (scored)")
	fmt.Println("    GET   /api/fraud-alerts               - List fraud alerts")
	fmt.Println("    POST  /api/fraud-alerts/scan/{id}     - Scan one subject")
	fmt.Println("    POST  /api/fraud-alerts/rescan        - Queue scan of all subjects")
	fmt.Println("    GET   /api/analytics/dashboard        - Headline counts")
	fmt.Println("    POST  /api/ml/train                   - Retrain anomaly model")
	fmt.Println("    GET   /api/rules                      - List custom rules")
	fmt.Println("    GET   /health                         - Health check")
	fmt.Println("    GET   /metrics                        - Prometheus metrics")
	fmt.Println()
}
