package service

import (
	"context"

	"leadscore_backend/internal/predictions/repository"
	"leadscore_backend/internal/predictions/transport"
	"leadscore_backend/platform/apperr"

	"github.com/google/uuid"
)

const defaultBulkLimit = 50

// BulkGenerate runs predictions for the organization's top-scored
// leads, strictly one at a time to bound load on the LLM. One lead's
// failure is recorded and does not abort the rest. A non-positive
// limit falls back to the configured bulk limit.
func (s *Service) BulkGenerate(ctx context.Context, organizationID uuid.UUID, predictionType string, limit int) (transport.BulkGenerateResponse, error) {
	if !repository.ValidType(predictionType) {
		return transport.BulkGenerateResponse{}, apperr.Validation("unknown prediction type")
	}
	if limit <= 0 {
		limit = s.bulkLimit
	}

	leads, err := s.leads.ListTopScored(ctx, organizationID, limit)
	if err != nil {
		return transport.BulkGenerateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list leads for bulk prediction", err)
	}

	result := transport.BulkGenerateResponse{
		Results: make([]transport.BulkItemResult, 0, len(leads)),
	}

	for _, lead := range leads {
		result.Processed++

		prediction, err := s.Generate(ctx, lead.ID, organizationID, predictionType, GenerateOptions{})
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, transport.BulkItemResult{
				LeadID: lead.ID,
				Error:  err.Error(),
			})
			continue
		}

		result.Successful++
		result.Results = append(result.Results, transport.BulkItemResult{
			LeadID:     lead.ID,
			Prediction: &prediction,
		})
	}

	return result, nil
}
