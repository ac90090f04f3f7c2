package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PredictionReader provides lookup access to prediction rows.
type PredictionReader interface {
	FindLatestPrediction(ctx context.Context, leadID, organizationID uuid.UUID, predictionType string) (*Prediction, error)
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (Prediction, error)
	ListForAccuracy(ctx context.Context, organizationID uuid.UUID, from, to time.Time) ([]Prediction, error)
}

// PredictionWriter creates and validates prediction rows.
type PredictionWriter interface {
	CreatePrediction(ctx context.Context, params CreatePredictionParams) (Prediction, error)
	UpdatePredictionStatus(ctx context.Context, id, organizationID uuid.UUID, status string, wasAccurate bool) error
}

// PredictionsRepository is the full persistence surface.
type PredictionsRepository interface {
	PredictionReader
	PredictionWriter
}

// Compile-time checks
var _ PredictionsRepository = (*Repository)(nil)
