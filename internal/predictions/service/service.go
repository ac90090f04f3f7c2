// Package service orchestrates lead predictions: cache lookups,
// context gathering, the LLM-or-rules prediction step, persistence,
// ranking, and accuracy tracking.
package service

import (
	"context"
	"errors"
	"time"

	"leadscore_backend/internal/events"
	leadsrepo "leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/features"
	"leadscore_backend/internal/predictions/repository"
	"leadscore_backend/internal/predictions/scoring"
	"leadscore_backend/internal/predictions/transport"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const activityFetchLimit = 100

// GenerateOptions control a single prediction request.
type GenerateOptions struct {
	ForceRefresh  bool
	RuleBasedOnly bool
}

// Service is the prediction orchestrator.
type Service struct {
	leads     leadsrepo.LeadsRepository
	preds     repository.PredictionsRepository
	scorer    *scoring.Scorer
	llmClient LLMClient
	llm       predictor
	rules     predictor
	bus       events.Bus
	log       *logger.Logger
	validity  time.Duration
	bulkLimit int
	now       func() time.Time
}

func New(leads leadsrepo.LeadsRepository, preds repository.PredictionsRepository, llmClient LLMClient, bus events.Bus, log *logger.Logger, cfg config.PredictionConfig) *Service {
	validity := cfg.GetPredictionValidity()
	if validity <= 0 {
		validity = 7 * 24 * time.Hour
	}
	bulkLimit := cfg.GetBulkPredictionLimit()
	if bulkLimit <= 0 {
		bulkLimit = defaultBulkLimit
	}
	return &Service{
		leads:     leads,
		preds:     preds,
		scorer:    scoring.NewScorer(scoring.DefaultWeights()),
		llmClient: llmClient,
		llm:       llmPredictor{client: llmClient},
		rules:     rulePredictor{},
		bus:       bus,
		log:       log,
		validity:  validity,
		bulkLimit: bulkLimit,
		now:       time.Now,
	}
}

// Generate produces (or reuses) a prediction for one lead. The flow is
// CheckCache, GatherContext, Predict, Persist, with a type-specific
// side effect on the lead row.
func (s *Service) Generate(ctx context.Context, leadID, organizationID uuid.UUID, predictionType string, opts GenerateOptions) (transport.PredictionResponse, error) {
	if !repository.ValidType(predictionType) {
		return transport.PredictionResponse{}, apperr.Validation("unknown prediction type")
	}

	if !opts.ForceRefresh {
		cached, err := s.checkCache(ctx, leadID, organizationID, predictionType)
		if err != nil {
			return transport.PredictionResponse{}, err
		}
		if cached != nil {
			return toPredictionResponse(*cached, true), nil
		}
	}

	lctx, err := s.gatherContext(ctx, leadID, organizationID)
	if err != nil {
		return transport.PredictionResponse{}, err
	}

	out := s.predict(ctx, lctx, predictionType, opts)

	prediction, err := s.persist(ctx, lctx, organizationID, predictionType, out)
	if err != nil {
		return transport.PredictionResponse{}, err
	}

	switch predictionType {
	case repository.TypeConversion:
		s.applyConversionFields(ctx, lctx, organizationID, prediction)
	case repository.TypeScore:
		s.applyLeadScore(ctx, lctx, organizationID, prediction)
	}

	s.bus.Publish(ctx, events.PredictionGenerated{
		BaseEvent:      events.NewBaseEvent(),
		PredictionID:   prediction.ID,
		LeadID:         leadID,
		OrganizationID: organizationID,
		PredictionType: predictionType,
		Probability:    prediction.Probability,
		Model:          prediction.LLMMetadata.Model,
	})
	s.log.PredictionGenerated(leadID.String(), predictionType, prediction.LLMMetadata.Model, prediction.LLMMetadata.LatencyMs)

	return toPredictionResponse(prediction, false), nil
}

// GetLatest returns the newest prediction of the given type without
// generating a new one.
func (s *Service) GetLatest(ctx context.Context, leadID, organizationID uuid.UUID, predictionType string) (transport.PredictionResponse, error) {
	if !repository.ValidType(predictionType) {
		return transport.PredictionResponse{}, apperr.Validation("unknown prediction type")
	}
	latest, err := s.preds.FindLatestPrediction(ctx, leadID, organizationID, predictionType)
	if err != nil {
		return transport.PredictionResponse{}, apperr.Wrap(apperr.KindInternal, "failed to fetch prediction", err)
	}
	if latest == nil {
		return transport.PredictionResponse{}, apperr.NotFound("no prediction for this lead and type")
	}
	return toPredictionResponse(*latest, true), nil
}

// FeatureBreakdown extracts features and the rule-based score without
// persisting anything.
func (s *Service) FeatureBreakdown(ctx context.Context, leadID, organizationID uuid.UUID) (transport.FeatureBreakdownResponse, error) {
	lctx, err := s.gatherContext(ctx, leadID, organizationID)
	if err != nil {
		return transport.FeatureBreakdownResponse{}, err
	}
	return transport.FeatureBreakdownResponse{
		LeadID:      leadID,
		Features:    lctx.Features,
		Probability: lctx.RuleResult.Probability,
		ScoreLevel:  lctx.RuleResult.ScoreLevel,
		Breakdown:   lctx.RuleResult.Breakdown,
		ComputedAt:  s.now().UTC(),
	}, nil
}

// checkCache returns the latest unexpired prediction or nil on a miss.
// Concurrent misses may both compute and both write; the newer row
// wins latest-by-predictedAt and the duplicate is harmless.
func (s *Service) checkCache(ctx context.Context, leadID, organizationID uuid.UUID, predictionType string) (*repository.Prediction, error) {
	latest, err := s.preds.FindLatestPrediction(ctx, leadID, organizationID, predictionType)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check prediction cache", err)
	}
	if latest == nil || !latest.ValidUntil.After(s.now()) {
		return nil, nil
	}
	return latest, nil
}

// gatherContext fetches the lead first, then reads activities and the
// active enrollment in parallel, then derives features and the
// rule-based baseline.
func (s *Service) gatherContext(ctx context.Context, leadID, organizationID uuid.UUID) (leadContext, error) {
	lead, err := s.leads.GetByID(ctx, leadID, organizationID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return leadContext{}, apperr.NotFound("lead not found")
		}
		return leadContext{}, apperr.Wrap(apperr.KindInternal, "failed to fetch lead", err)
	}

	var (
		activities []leadsrepo.Activity
		enrollment *leadsrepo.Enrollment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activities, err = s.leads.ListRecentActivities(gctx, leadID, activityFetchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		enrollment, err = s.leads.GetActiveEnrollment(gctx, leadID)
		return err
	})
	if err := g.Wait(); err != nil {
		return leadContext{}, apperr.Wrap(apperr.KindInternal, "failed to gather lead context", err)
	}

	now := s.now()
	f := features.Extract(lead, activities, enrollment, now)
	return leadContext{
		Lead:       lead,
		Activities: activities,
		Enrollment: enrollment,
		Features:   f,
		RuleResult: s.scorer.Score(f),
		Now:        now,
	}, nil
}

// predict tries the LLM first and falls back to the rule-based model.
// The fallback is silent: callers see the same shape either way, with
// the model field recording which path answered.
func (s *Service) predict(ctx context.Context, lctx leadContext, predictionType string, opts GenerateOptions) outcome {
	if s.llmAvailable() && !opts.RuleBasedOnly {
		out, err := s.llm.Predict(ctx, lctx, predictionType)
		if err == nil {
			return out
		}
		s.log.PredictionFallback(lctx.Lead.ID.String(), predictionType, err)
	}

	out, _ := s.rules.Predict(ctx, lctx, predictionType)
	return out
}

func (s *Service) llmAvailable() bool {
	return s.llmClient != nil && s.llmClient.Available()
}

// persist always writes a new row, even when the value matches the
// previous one; the history feeds accuracy tracking and trend views.
func (s *Service) persist(ctx context.Context, lctx leadContext, organizationID uuid.UUID, predictionType string, out outcome) (repository.Prediction, error) {
	prediction, err := s.preds.CreatePrediction(ctx, repository.CreatePredictionParams{
		LeadID:          lctx.Lead.ID,
		OrganizationID:  organizationID,
		PredictionType:  predictionType,
		Probability:     out.Probability,
		Confidence:      out.Confidence,
		PredictedValue:  out.PredictedValue,
		PredictedDays:   out.PredictedDays,
		RiskFactors:     out.RiskFactors,
		Explanation:     out.Explanation,
		Recommendations: out.Recommendations,
		LLMMetadata:     out.Metadata,
		ValidUntil:      s.now().Add(s.validity),
	})
	if err != nil {
		return repository.Prediction{}, apperr.Wrap(apperr.KindInternal, "failed to persist prediction", err)
	}
	return prediction, nil
}

// applyConversionFields copies the CONVERSION prediction onto the lead
// row. A failure here is logged but does not fail the prediction, the
// row is already persisted.
func (s *Service) applyConversionFields(ctx context.Context, lctx leadContext, organizationID uuid.UUID, prediction repository.Prediction) {
	var closeDate *time.Time
	if prediction.PredictedDays != nil {
		d := s.now().UTC().AddDate(0, 0, *prediction.PredictedDays)
		closeDate = &d
	}

	if err := s.leads.UpdateConversionFields(ctx, lctx.Lead.ID, organizationID, prediction.Probability, closeDate); err != nil {
		s.log.DatabaseError("update conversion fields", err)
		return
	}

	event := events.LeadConversionUpdated{
		BaseEvent:             events.NewBaseEvent(),
		LeadID:                lctx.Lead.ID,
		OrganizationID:        organizationID,
		ConversionProbability: prediction.Probability,
		PredictedCloseDate:    closeDate,
	}
	s.bus.Publish(ctx, event)
}

// applyLeadScore copies the SCORE prediction's value onto the lead row
// so top-scored listings reflect the newest computation. A failure here
// is logged but does not fail the prediction.
func (s *Service) applyLeadScore(ctx context.Context, lctx leadContext, organizationID uuid.UUID, prediction repository.Prediction) {
	if prediction.PredictedValue == nil {
		return
	}
	if err := s.leads.UpdateLeadScore(ctx, lctx.Lead.ID, organizationID, int(*prediction.PredictedValue)); err != nil {
		s.log.DatabaseError("update lead score", err)
	}
}

func toPredictionResponse(p repository.Prediction, cached bool) transport.PredictionResponse {
	resp := transport.PredictionResponse{
		ID:              p.ID,
		LeadID:          p.LeadID,
		PredictionType:  p.PredictionType,
		Probability:     p.Probability,
		Confidence:      p.Confidence,
		ScoreLevel:      scoring.LevelFromProbability(p.Probability),
		PredictedValue:  p.PredictedValue,
		PredictedDays:   p.PredictedDays,
		RiskFactors:     p.RiskFactors,
		Explanation:     p.Explanation,
		Recommendations: p.Recommendations,
		LLMMetadata: transport.LLMMetadataResponse{
			Model:         p.LLMMetadata.Model,
			TokensUsed:    p.LLMMetadata.TokensUsed,
			LatencyMs:     p.LLMMetadata.LatencyMs,
			EstimatedCost: p.LLMMetadata.EstimatedCost,
		},
		PredictedAt: p.PredictedAt,
		ValidUntil:  p.ValidUntil,
		Status:      p.Status,
		WasAccurate: p.WasAccurate,
		Cached:      cached,
	}

	if p.PredictedDays != nil {
		interval := scoring.IntervalFor(*p.PredictedDays, p.Confidence)
		resp.ConfidenceInterval = &interval
	}
	return resp
}
