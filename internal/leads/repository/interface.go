package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, error)
	ListTopScored(ctx context.Context, organizationID uuid.UUID, limit int) ([]Lead, error)
}

// LeadWriter provides write operations for lead intake.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
}

// ActivityReader provides read access to the activity log.
type ActivityReader interface {
	ListRecentActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error)
}

// ActivityWriter records engagement events.
type ActivityWriter interface {
	AddActivity(ctx context.Context, leadID uuid.UUID, activityType string, occurredAt time.Time) (Activity, error)
}

// EnrollmentReader provides access to nurture sequence enrollments.
type EnrollmentReader interface {
	GetActiveEnrollment(ctx context.Context, leadID uuid.UUID) (*Enrollment, error)
}

// ConversionWriter stores derived conversion fields on the lead row.
type ConversionWriter interface {
	UpdateConversionFields(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, probability float64, predictedCloseDate *time.Time) error
	UpdateLeadScore(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, score int) error
}

// LeadsRepository combines all lead data access used across modules.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ActivityReader
	ActivityWriter
	EnrollmentReader
	ConversionWriter
}
