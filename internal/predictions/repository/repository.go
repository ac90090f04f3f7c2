// Package repository persists prediction rows. Rows are append-only:
// every non-cached computation writes a new row and older rows stay
// behind for audit and accuracy aggregation. The Accuracy Tracker is
// the only writer of status and wasAccurate.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadscore_backend/internal/predictions/scoring"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a prediction does not exist or does not
// belong to the organization.
var ErrNotFound = errors.New("prediction not found")

// Prediction types.
const (
	TypeConversion  = "CONVERSION"
	TypeTimeToClose = "TIME_TO_CLOSE"
	TypeScore       = "SCORE"
	TypePriority    = "PRIORITY"
)

// Prediction statuses.
const (
	StatusActive      = "ACTIVE"
	StatusValidated   = "VALIDATED"
	StatusInvalidated = "INVALIDATED"
)

// ValidType reports whether t is a known prediction type.
func ValidType(t string) bool {
	switch t {
	case TypeConversion, TypeTimeToClose, TypeScore, TypePriority:
		return true
	}
	return false
}

// LLMMetadata records which model produced a prediction and what it
// cost. Model is "rule-based-fallback" when the deterministic scorer
// answered.
type LLMMetadata struct {
	Model         string  `json:"model"`
	TokensUsed    int     `json:"tokensUsed"`
	LatencyMs     int64   `json:"latencyMs"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// Prediction is one persisted prediction row.
type Prediction struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	OrganizationID  uuid.UUID
	PredictionType  string
	Probability     float64
	Confidence      float64
	PredictedValue  *float64
	PredictedDays   *int
	RiskFactors     []scoring.RiskFactor
	Explanation     string
	Recommendations []scoring.Recommendation
	LLMMetadata     LLMMetadata
	PredictedAt     time.Time
	ValidUntil      time.Time
	Status          string
	WasAccurate     *bool
	ValidatedAt     *time.Time
}

// CreatePredictionParams carries everything needed for a new row.
type CreatePredictionParams struct {
	LeadID          uuid.UUID
	OrganizationID  uuid.UUID
	PredictionType  string
	Probability     float64
	Confidence      float64
	PredictedValue  *float64
	PredictedDays   *int
	RiskFactors     []scoring.RiskFactor
	Explanation     string
	Recommendations []scoring.Recommendation
	LLMMetadata     LLMMetadata
	ValidUntil      time.Time
}

// Repository provides prediction persistence backed by Postgres
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const predictionColumns = `
	id, lead_id, organization_id, prediction_type,
	probability, confidence, predicted_value, predicted_days,
	risk_factors, explanation, recommendations, llm_metadata,
	predicted_at, valid_until, status, was_accurate, validated_at`

// CreatePrediction inserts a new row. Existing rows for the same
// (lead, type) are left untouched.
func (r *Repository) CreatePrediction(ctx context.Context, params CreatePredictionParams) (Prediction, error) {
	riskJSON, err := json.Marshal(params.RiskFactors)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal risk factors: %w", err)
	}
	recsJSON, err := json.Marshal(params.Recommendations)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal recommendations: %w", err)
	}
	metaJSON, err := json.Marshal(params.LLMMetadata)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal llm metadata: %w", err)
	}

	query := `
		INSERT INTO lead_predictions (
			lead_id, organization_id, prediction_type,
			probability, confidence, predicted_value, predicted_days,
			risk_factors, explanation, recommendations, llm_metadata,
			valid_until, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + predictionColumns

	row := r.pool.QueryRow(ctx, query,
		params.LeadID, params.OrganizationID, params.PredictionType,
		params.Probability, params.Confidence, params.PredictedValue, params.PredictedDays,
		riskJSON, params.Explanation, recsJSON, metaJSON,
		params.ValidUntil, StatusActive,
	)
	return scanPrediction(row)
}

// FindLatestPrediction returns the newest prediction of the given type
// for the lead, or nil when the lead has never been scored.
func (r *Repository) FindLatestPrediction(ctx context.Context, leadID, organizationID uuid.UUID, predictionType string) (*Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM lead_predictions
		WHERE lead_id = $1 AND organization_id = $2 AND prediction_type = $3
		ORDER BY predicted_at DESC
		LIMIT 1`

	row := r.pool.QueryRow(ctx, query, leadID, organizationID, predictionType)
	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetByID fetches one prediction scoped to the organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM lead_predictions
		WHERE id = $1 AND organization_id = $2`

	p, err := scanPrediction(r.pool.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Prediction{}, ErrNotFound
		}
		return Prediction{}, err
	}
	return p, nil
}

// UpdatePredictionStatus stamps the human validation verdict. Repeated
// validation overwrites the previous verdict, last write wins.
func (r *Repository) UpdatePredictionStatus(ctx context.Context, id, organizationID uuid.UUID, status string, wasAccurate bool) error {
	query := `
		UPDATE lead_predictions
		SET status = $3, was_accurate = $4, validated_at = NOW()
		WHERE id = $1 AND organization_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, organizationID, status, wasAccurate)
	if err != nil {
		return fmt.Errorf("update prediction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForAccuracy returns all predictions for the organization whose
// predicted_at falls inside [from, to].
func (r *Repository) ListForAccuracy(ctx context.Context, organizationID uuid.UUID, from, to time.Time) ([]Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM lead_predictions
		WHERE organization_id = $1 AND predicted_at >= $2 AND predicted_at <= $3
		ORDER BY predicted_at ASC`

	rows, err := r.pool.Query(ctx, query, organizationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func scanPrediction(row pgx.Row) (Prediction, error) {
	var p Prediction
	var riskJSON, recsJSON, metaJSON []byte

	err := row.Scan(
		&p.ID, &p.LeadID, &p.OrganizationID, &p.PredictionType,
		&p.Probability, &p.Confidence, &p.PredictedValue, &p.PredictedDays,
		&riskJSON, &p.Explanation, &recsJSON, &metaJSON,
		&p.PredictedAt, &p.ValidUntil, &p.Status, &p.WasAccurate, &p.ValidatedAt,
	)
	if err != nil {
		return Prediction{}, err
	}

	if len(riskJSON) > 0 {
		if err := json.Unmarshal(riskJSON, &p.RiskFactors); err != nil {
			return Prediction{}, fmt.Errorf("unmarshal risk factors: %w", err)
		}
	}
	if len(recsJSON) > 0 {
		if err := json.Unmarshal(recsJSON, &p.Recommendations); err != nil {
			return Prediction{}, fmt.Errorf("unmarshal recommendations: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &p.LLMMetadata); err != nil {
			return Prediction{}, fmt.Errorf("unmarshal llm metadata: %w", err)
		}
	}
	return p, nil
}
