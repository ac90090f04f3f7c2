package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadscore_backend/internal/predictions/service"
	"leadscore_backend/internal/predictions/transport"
	"leadscore_backend/platform/httpkit"
	"leadscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// BulkEnqueuer defers a bulk prediction run to the background worker.
type BulkEnqueuer interface {
	EnqueueBulkPredictions(ctx context.Context, organizationID uuid.UUID, predictionType string, limit int) (string, error)
}

// Handler handles HTTP requests for predictions
type Handler struct {
	svc      *service.Service
	val      *validator.Validator
	enqueuer BulkEnqueuer
}

// New creates a new predictions handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SetEnqueuer injects the background queue for deferred bulk runs.
func (h *Handler) SetEnqueuer(enqueuer BulkEnqueuer) {
	h.enqueuer = enqueuer
}

// RegisterLeadRoutes registers prediction routes nested under /leads.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/predictions/:type", h.Generate)
	rg.GET("/:id/predictions/:type", h.GetLatest)
	rg.GET("/:id/features", h.FeatureBreakdown)
}

// RegisterRoutes registers the /predictions routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bulk", h.BulkGenerate)
	rg.GET("/ranked", h.Ranked)
	rg.POST("/:id/validate", h.Validate)
	rg.GET("/accuracy", h.Accuracy)
	rg.GET("/feature-importance", h.FeatureImportance)
}

func (h *Handler) Generate(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	predictionType := strings.ToUpper(c.Param("type"))

	var req transport.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Generate(c.Request.Context(), leadID, tenantID, predictionType, service.GenerateOptions{
		ForceRefresh:  req.ForceRefresh,
		RuleBasedOnly: req.RuleBasedOnly,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetLatest(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	predictionType := strings.ToUpper(c.Param("type"))

	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetLatest(c.Request.Context(), leadID, tenantID, predictionType)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) FeatureBreakdown(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.FeatureBreakdown(c.Request.Context(), leadID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) BulkGenerate(c *gin.Context) {
	var req transport.BulkGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	if c.Query("queue") == "true" {
		if h.enqueuer == nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "background queue not configured", nil)
			return
		}
		taskID, err := h.enqueuer.EnqueueBulkPredictions(c.Request.Context(), tenantID, req.PredictionType, req.Limit)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{"queued": true, "taskId": taskID})
		return
	}

	result, err := h.svc.BulkGenerate(c.Request.Context(), tenantID, req.PredictionType, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Ranked(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	opts := service.RankOptions{
		Limit:         parsePositiveInt(c.Query("limit"), 0),
		Tier:          strings.TrimSpace(c.Query("tier")),
		RuleBasedOnly: llmOptedOut(c),
	}
	if raw := c.Query("minProbability"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil || min < 0 || min > 1 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		opts.MinProbability = min
	}

	result, err := h.svc.RankLeads(c.Request.Context(), tenantID, opts)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Validate(c *gin.Context) {
	predictionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Validate(c.Request.Context(), predictionID, tenantID, *req.WasAccurate)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Accuracy(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, -3, 0)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		to = parsed
	}

	result, err := h.svc.Accuracy(c.Request.Context(), tenantID, from, to)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) FeatureImportance(c *gin.Context) {
	httpkit.OK(c, gin.H{"features": h.svc.FeatureImportanceTable()})
}

func mustGetTenantID(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing tenant context", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}

// llmOptedOut reports whether the request disabled the LLM ranking
// path. The useLLM parameter defaults to true; only an explicit
// useLLM=false forces the deterministic path.
func llmOptedOut(c *gin.Context) bool {
	return c.Query("useLLM") == "false"
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
