// Package main is the entry point for the stratus server. It wires all
// dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/averto-io/stratus/internal/awscloud"
	"github.com/averto-io/stratus/internal/config"
	"github.com/averto-io/stratus/internal/intent"
	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/orchestrator"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (empty: defaults plus STRATUS_* environment)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "stratus", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Schema store: hydrate from disk, then optionally preload from the
	// live registry.
	schemas := schema.NewStore(cfg.Schemas.Directory)
	loaded, loadErrs := schemas.Hydrate()
	for _, lerr := range loadErrs {
		logger.Warn("schema skipped during hydration", zap.Error(lerr))
	}
	logger.Info("schema store hydrated",
		zap.String("directory", cfg.Schemas.Directory),
		zap.Int("loaded", loaded),
		zap.Int("skipped", len(loadErrs)),
	)

	// Provisioning backend. Optional: without it the service still
	// parses, validates, and evaluates policy, but refuses execution.
	var prov orchestrator.Provisioner
	var downloader *schema.Downloader
	var provChecker observability.HealthChecker
	if cfg.AWS.Enabled {
		awsCfg, err := awscloud.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			logger.Error("loading cloud credentials failed", zap.Error(err))
			return 1
		}
		cloudProv := awscloud.NewProvisioner(awsCfg)
		prov = cloudProv
		provChecker = cloudProv
		downloader = schema.NewDownloader(awscloud.NewSchemaSource(awsCfg, logger), schemas, logger)

		switch cfg.Schemas.Preload {
		case "common":
			n := downloader.DownloadCommon(ctx)
			logger.Info("preloaded common schemas", zap.Int("count", n))
		case "all":
			n := downloader.DownloadAll(ctx)
			logger.Info("preloaded full registry", zap.Int("count", n))
		}
	} else {
		logger.Info("cloud backend disabled, running in preview-only mode")
	}
	metrics.SetSchemasLoaded(float64(schemas.Len()))

	// Rule store.
	rules, err := policy.NewStore(cfg.Rules.Directory, logger)
	if err != nil {
		logger.Error("rule store initialization failed", zap.Error(err))
		return 1
	}
	if cfg.Rules.SeedExamples {
		if err := rules.SeedExamples(); err != nil {
			logger.Error("seeding example rules failed", zap.Error(err))
			return 1
		}
	}
	if names, err := rules.List(); err == nil {
		metrics.SetRulesStored(float64(len(names)))
		logger.Info("rule store ready",
			zap.String("directory", cfg.Rules.Directory),
			zap.Int("rules", len(names)),
		)
	}

	evaluator := policy.NewEvaluator(rules)
	parser := intent.NewParser(schemas)
	orch := orchestrator.New(parser, schemas, evaluator, prov, logger)

	readiness := observability.ReadinessChecks{
		SchemasLoaded: func() bool {
			return schemas.Len() > 0 || cfg.Schemas.Preload == "none"
		},
		RulesReady: func() bool {
			_, err := rules.List()
			return err == nil
		},
		Provisioner: provChecker,
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Orchestrator: orch,
		Schemas:      schemas,
		Rules:        rules,
		Evaluator:    evaluator,
		Provisioner:  prov,
		Downloader:   downloader,
		Readiness:    readiness,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("schemas", schemas.Len()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}
