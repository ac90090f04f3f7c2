// Package service implements lead intake and retrieval.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadscore_backend/internal/events"
	"leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/leads/transport"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/phone"
	"leadscore_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Service provides lead intake and retrieval operations.
type Service struct {
	repo repository.LeadsRepository
	bus  events.Bus
}

func New(repo repository.LeadsRepository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

// Create stores a new lead after sanitizing free-text fields.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		OrganizationID: organizationID,
		FirstName:      sanitize.Text(req.FirstName),
		LastName:       sanitize.Text(req.LastName),
		Email:          optionalText(req.Email),
		Company:        optionalText(req.Company),
		Title:          optionalText(req.Title),
		Source:         optionalText(req.Source),
	}
	if trimmed := strings.TrimSpace(req.Phone); trimmed != "" {
		normalized := phone.NormalizeE164(trimmed)
		params.Phone = &normalized
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
	})

	return toLeadResponse(lead), nil
}

// GetByID fetches a lead scoped to the organization.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to fetch lead", err)
	}
	return toLeadResponse(lead), nil
}

// List returns leads for the organization.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]transport.LeadResponse, error) {
	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	responses := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		responses[i] = toLeadResponse(lead)
	}
	return responses, nil
}

// AddActivity records an engagement event after verifying tenant ownership.
func (s *Service) AddActivity(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, req transport.AddActivityRequest) (transport.ActivityResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID, organizationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ActivityResponse{}, apperr.NotFound("lead not found")
		}
		return transport.ActivityResponse{}, apperr.Wrap(apperr.KindInternal, "failed to fetch lead", err)
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	activity, err := s.repo.AddActivity(ctx, leadID, sanitize.Text(req.ActivityType), occurredAt)
	if err != nil {
		return transport.ActivityResponse{}, apperr.Wrap(apperr.KindInternal, "failed to record activity", err)
	}

	return transport.ActivityResponse{
		ID:           activity.ID,
		LeadID:       activity.LeadID,
		ActivityType: activity.ActivityType,
		OccurredAt:   activity.OccurredAt,
	}, nil
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                    lead.ID,
		Email:                 lead.Email,
		FirstName:             lead.FirstName,
		LastName:              lead.LastName,
		Company:               lead.Company,
		Title:                 lead.Title,
		Phone:                 lead.Phone,
		Source:                lead.Source,
		Status:                lead.Status,
		LeadScore:             lead.LeadScore,
		ConversionProbability: lead.ConversionProbability,
		PredictedCloseDate:    lead.PredictedCloseDate,
		CreatedAt:             lead.CreatedAt,
		UpdatedAt:             lead.UpdatedAt,
	}
}

func optionalText(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	cleaned := sanitize.Text(trimmed)
	return &cleaned
}
