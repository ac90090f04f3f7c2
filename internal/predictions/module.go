// Package predictions provides the lead prediction domain module:
// feature extraction, rule-based scoring, LLM-backed prediction with
// deterministic fallback, priority ranking, and accuracy tracking.
package predictions

import (
	"leadscore_backend/internal/events"
	apphttp "leadscore_backend/internal/http"
	leadsrepo "leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/handler"
	"leadscore_backend/internal/predictions/repository"
	"leadscore_backend/internal/predictions/service"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the predictions domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new predictions module with all dependencies wired
func NewModule(pool *pgxpool.Pool, leads leadsrepo.LeadsRepository, llmClient service.LLMClient, eventBus events.Bus, log *logger.Logger, val *validator.Validator, cfg config.PredictionConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(leads, repo, llmClient, eventBus, log, cfg)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "predictions"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// SetEnqueuer injects the background queue for deferred bulk runs.
func (m *Module) SetEnqueuer(enqueuer handler.BulkEnqueuer) {
	m.handler.SetEnqueuer(enqueuer)
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/predictions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
