package transport

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/averto-io/stratus/internal/config"
	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/orchestrator"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/internal/schema"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Orchestrator *orchestrator.Orchestrator
	Schemas      *schema.Store
	Rules        *policy.Store
	Evaluator    *policy.Evaluator

	// Provisioner is nil in preview-only deployments; the direct
	// resource routes then refuse.
	Provisioner orchestrator.Provisioner

	// Downloader is nil when the deployment has no registry access;
	// the download endpoint then refuses.
	Downloader *schema.Downloader

	Readiness observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// request pipeline middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Operational endpoints.
	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		r.Handle(deps.Config.Observability.Metrics.Path, observability.Handler())
	}

	// API routes: full pipeline middleware.
	r.Route("/v1", func(r chi.Router) {
		r.Use(observability.TracingMiddleware)
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))

		r.Post("/intent", handleIntent(deps.Orchestrator, deps.Metrics, deps.Logger))
		r.Get("/requests/{token}", handleRequestStatus(deps.Orchestrator))

		r.Get("/schemas", handleListSchemas(deps.Schemas))
		r.Get("/schemas/{typeName}", handleGetSchema(deps.Schemas))
		r.Post("/schemas/{typeName}/download", handleDownloadSchema(deps.Downloader, deps.Schemas, deps.Metrics))
		r.Get("/schemas/{typeName}/template", handleTemplate(deps.Schemas))
		r.Post("/schemas/{typeName}/validate", handleValidate(deps.Schemas, deps.Metrics))

		r.Post("/resources/{typeName}", handleCreateResource(deps.Provisioner, deps.Schemas, deps.Evaluator, deps.Metrics))
		r.Get("/resources/{typeName}", handleListResources(deps.Provisioner))
		r.Get("/resources/{typeName}/{identifier}", handleReadResource(deps.Provisioner))
		r.Patch("/resources/{typeName}/{identifier}", handlePatchResource(deps.Provisioner, deps.Metrics))
		r.Delete("/resources/{typeName}/{identifier}", handleDeleteResource(deps.Provisioner, deps.Metrics))

		r.Post("/policy/evaluate", handleEvaluatePolicy(deps.Evaluator, deps.Metrics))

		r.Get("/rules", handleListRules(deps.Rules))
		r.Get("/rules/{name}", handleGetRule(deps.Rules))
		r.Put("/rules/{name}", handlePutRule(deps.Rules, deps.Metrics))
		r.Delete("/rules/{name}", handleDeleteRule(deps.Rules, deps.Metrics))
	})

	return r
}
