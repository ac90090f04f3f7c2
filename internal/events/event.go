// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadscore_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead is stored.
type LeadCreated struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Prediction Domain Events
// =============================================================================

// PredictionGenerated is published after a prediction row is persisted.
type PredictionGenerated struct {
	BaseEvent
	PredictionID   uuid.UUID `json:"predictionId"`
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	PredictionType string    `json:"predictionType"`
	Probability    float64   `json:"probability"`
	Model          string    `json:"model"`
}

func (e PredictionGenerated) EventName() string { return "predictions.prediction.generated" }

// LeadConversionUpdated is published when a CONVERSION prediction updates
// the lead's stored conversion fields.
type LeadConversionUpdated struct {
	BaseEvent
	LeadID                uuid.UUID  `json:"leadId"`
	OrganizationID        uuid.UUID  `json:"organizationId"`
	ConversionProbability float64    `json:"conversionProbability"`
	PredictedCloseDate    *time.Time `json:"predictedCloseDate,omitempty"`
}

func (e LeadConversionUpdated) EventName() string { return "leads.lead.conversion_updated" }
