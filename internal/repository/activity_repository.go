package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthcampaign/project-factory/internal/domain"
)

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository wires a repository backed by pgxpool.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

// Insert writes every activity in one batch. Activities are immutable, so
// replays of the same id are ignored.
func (r *activityRepository) Insert(ctx context.Context, activities []domain.Activity) error {
	if r.pool == nil {
		return fmt.Errorf("activity repository not initialized")
	}
	if len(activities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range activities {
		request, err := json.Marshal(a.RequestPayload)
		if err != nil {
			return fmt.Errorf("failed to encode activity request %s: %w", a.ID, err)
		}
		response, err := json.Marshal(a.ResponsePayload)
		if err != nil {
			return fmt.Errorf("failed to encode activity response %s: %w", a.ID, err)
		}
		batch.Queue(
			`INSERT INTO resource_activity (id, resource_details_id, tenant_id, type, url,
			     request_payload, response_payload, status_code, created_by, created_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID, a.ResourceDetailsID, a.TenantID, a.Type, a.URL,
			request, response, a.StatusCode, a.AuditDetails.CreatedBy, a.AuditDetails.CreatedTime,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for i := range activities {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert activity %s: %w", activities[i].ID, err)
		}
	}
	return nil
}

func (r *activityRepository) ListByResource(ctx context.Context, resourceDetailsID uuid.UUID) ([]domain.Activity, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("activity repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, resource_details_id, tenant_id, type, url, request_payload, response_payload,
		     status_code, created_by, created_time
		 FROM resource_activity
		 WHERE resource_details_id = $1
		 ORDER BY created_time ASC`,
		resourceDetailsID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		var (
			a                 domain.Activity
			request, response []byte
		)
		if scanErr := rows.Scan(
			&a.ID,
			&a.ResourceDetailsID,
			&a.TenantID,
			&a.Type,
			&a.URL,
			&request,
			&response,
			&a.StatusCode,
			&a.AuditDetails.CreatedBy,
			&a.AuditDetails.CreatedTime,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", scanErr)
		}
		a.RequestPayload = json.RawMessage(request)
		a.ResponsePayload = json.RawMessage(response)
		a.AuditDetails.LastModifiedBy = a.AuditDetails.CreatedBy
		a.AuditDetails.LastModifiedTime = a.AuditDetails.CreatedTime
		activities = append(activities, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", rowsErr)
	}
	return activities, nil
}
