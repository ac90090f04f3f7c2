package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListRecentActivities returns up to limit activities for a lead, newest
// first. The feature pipeline caps this at 100.
func (r *Repository) ListRecentActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, activity_type, occurred_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		var activity Activity
		if err := rows.Scan(&activity.ID, &activity.LeadID, &activity.ActivityType, &activity.OccurredAt); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}

	return activities, rows.Err()
}

// AddActivity records an engagement event on a lead.
func (r *Repository) AddActivity(ctx context.Context, leadID uuid.UUID, activityType string, occurredAt time.Time) (Activity, error) {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var activity Activity
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_activities (id, lead_id, activity_type, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, activity_type, occurred_at
	`, uuid.New(), leadID, activityType, occurredAt).Scan(
		&activity.ID, &activity.LeadID, &activity.ActivityType, &activity.OccurredAt,
	)
	return activity, err
}

// GetActiveEnrollment returns the lead's active nurture sequence enrollment,
// or nil when the lead is not enrolled.
func (r *Repository) GetActiveEnrollment(ctx context.Context, leadID uuid.UUID) (*Enrollment, error) {
	var enrollment Enrollment
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, sequence_id, current_step, total_steps, status, created_at
		FROM sequence_enrollments
		WHERE lead_id = $1 AND status = 'Active'
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID).Scan(
		&enrollment.ID, &enrollment.LeadID, &enrollment.SequenceID,
		&enrollment.CurrentStep, &enrollment.TotalSteps, &enrollment.Status,
		&enrollment.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}
