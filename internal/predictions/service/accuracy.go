package service

import (
	"context"
	"errors"
	"time"

	"leadscore_backend/internal/predictions/repository"
	"leadscore_backend/internal/predictions/transport"
	"leadscore_backend/platform/apperr"

	"github.com/google/uuid"
)

// Validate stamps a human verdict on a past prediction. Repeated
// validation overwrites the previous verdict.
func (s *Service) Validate(ctx context.Context, predictionID, organizationID uuid.UUID, wasAccurate bool) (transport.PredictionResponse, error) {
	status := repository.StatusInvalidated
	if wasAccurate {
		status = repository.StatusValidated
	}

	if err := s.preds.UpdatePredictionStatus(ctx, predictionID, organizationID, status, wasAccurate); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.PredictionResponse{}, apperr.NotFound("prediction not found")
		}
		return transport.PredictionResponse{}, apperr.Wrap(apperr.KindInternal, "failed to validate prediction", err)
	}

	updated, err := s.preds.GetByID(ctx, predictionID, organizationID)
	if err != nil {
		return transport.PredictionResponse{}, apperr.Wrap(apperr.KindInternal, "failed to fetch validated prediction", err)
	}
	return toPredictionResponse(updated, false), nil
}

// Accuracy aggregates validation outcomes over a date range, overall
// and per prediction type. Ratios are 0, never NaN, when nothing has
// been validated.
func (s *Service) Accuracy(ctx context.Context, organizationID uuid.UUID, from, to time.Time) (transport.AccuracyResponse, error) {
	if !from.Before(to) {
		return transport.AccuracyResponse{}, apperr.Validation("date range start must precede end")
	}

	predictions, err := s.preds.ListForAccuracy(ctx, organizationID, from, to)
	if err != nil {
		return transport.AccuracyResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load predictions for accuracy", err)
	}

	resp := transport.AccuracyResponse{
		From:   from,
		To:     to,
		ByType: make(map[string]transport.AccuracyByType),
	}

	for _, p := range predictions {
		byType := resp.ByType[p.PredictionType]

		resp.Overall.Total++
		byType.Total++

		if p.WasAccurate != nil {
			resp.Overall.Validated++
			byType.Validated++
			if *p.WasAccurate {
				resp.Overall.Accurate++
				byType.Accurate++
			}
		}

		resp.ByType[p.PredictionType] = byType
	}

	resp.Overall.Accuracy = ratio(resp.Overall.Accurate, resp.Overall.Validated)
	for t, stats := range resp.ByType {
		stats.Accuracy = ratio(stats.Accurate, stats.Validated)
		resp.ByType[t] = stats
	}
	return resp, nil
}

func ratio(accurate, validated int) float64 {
	if validated == 0 {
		return 0
	}
	return float64(accurate) / float64(validated)
}
