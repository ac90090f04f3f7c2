package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
	Company   string `json:"company,omitempty" validate:"omitempty,max=150"`
	Title     string `json:"title,omitempty" validate:"omitempty,max=120"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Source    string `json:"source,omitempty" validate:"omitempty,max=100"`
}

type AddActivityRequest struct {
	ActivityType string     `json:"activityType" validate:"required,min=1,max=50"`
	OccurredAt   *time.Time `json:"occurredAt,omitempty"`
}

// Response DTOs

type LeadResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 *string    `json:"email,omitempty"`
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	Company               *string    `json:"company,omitempty"`
	Title                 *string    `json:"title,omitempty"`
	Phone                 *string    `json:"phone,omitempty"`
	Source                *string    `json:"source,omitempty"`
	Status                string     `json:"status"`
	LeadScore             int        `json:"leadScore"`
	ConversionProbability *float64   `json:"conversionProbability,omitempty"`
	PredictedCloseDate    *time.Time `json:"predictedCloseDate,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type ActivityResponse struct {
	ID           uuid.UUID `json:"id"`
	LeadID       uuid.UUID `json:"leadId"`
	ActivityType string    `json:"activityType"`
	OccurredAt   time.Time `json:"occurredAt"`
}
