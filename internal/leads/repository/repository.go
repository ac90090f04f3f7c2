package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// Repository provides access to lead, activity and enrollment rows.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is a prospective customer record.
type Lead struct {
	ID                    uuid.UUID
	OrganizationID        uuid.UUID
	Email                 *string
	FirstName             string
	LastName              string
	Company               *string
	Title                 *string
	Phone                 *string
	Source                *string
	Status                string
	LeadScore             int
	ConversionProbability *float64
	PredictedCloseDate    *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Activity is a single tracked engagement event on a lead.
type Activity struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	ActivityType string
	OccurredAt   time.Time
}

// Enrollment is a lead's membership in a nurture sequence.
type Enrollment struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	SequenceID  uuid.UUID
	CurrentStep int
	TotalSteps  int
	Status      string
	CreatedAt   time.Time
}

const leadColumns = `
	id, organization_id, email, first_name, last_name, company, title, phone,
	source, status, lead_score, conversion_probability, predicted_close_date,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.Email, &lead.FirstName,
		&lead.LastName, &lead.Company, &lead.Title, &lead.Phone,
		&lead.Source, &lead.Status, &lead.LeadScore,
		&lead.ConversionProbability, &lead.PredictedCloseDate,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByID fetches a lead scoped to the organization.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scanLead(row)
}

// CreateLeadParams holds the fields for lead intake.
type CreateLeadParams struct {
	OrganizationID uuid.UUID
	Email          *string
	FirstName      string
	LastName       string
	Company        *string
	Title          *string
	Phone          *string
	Source         *string
}

// Create stores a new lead.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, organization_id, email, first_name, last_name, company, title,
			phone, source, status, lead_score, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'Active', 0, now(), now())
		RETURNING `+leadColumns+`
	`, uuid.New(), params.OrganizationID, params.Email, params.FirstName,
		params.LastName, params.Company, params.Title, params.Phone, params.Source)
	return scanLead(row)
}

// ListParams controls lead listing.
type ListParams struct {
	OrganizationID uuid.UUID
	Status         string
	Limit          int
	Offset         int
}

// List returns leads for an organization, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	status := params.Status
	if status == "" {
		status = "Active"
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, params.OrganizationID, status, limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListTopScored returns active leads ordered by stored lead score. The
// secondary created_at ordering keeps the fetch order deterministic, which
// downstream ranking relies on for tie-breaks.
func (r *Repository) ListTopScored(ctx context.Context, organizationID uuid.UUID, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND status = 'Active'
		ORDER BY lead_score DESC, created_at ASC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateConversionFields stores the predicted conversion probability and
// close date on the lead row.
func (r *Repository) UpdateConversionFields(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, probability float64, predictedCloseDate *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET conversion_probability = $3, predicted_close_date = $4, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, leadID, organizationID, probability, predictedCloseDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLeadScore stores a recomputed priority score on the lead row.
func (r *Repository) UpdateLeadScore(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, score int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET lead_score = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, leadID, organizationID, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
