package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthcampaign/project-factory/internal/domain"
)

// ErrCampaignNotFound is returned when no campaign matches the lookup.
var ErrCampaignNotFound = errors.New("campaign not found")

type campaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository wires a repository backed by pgxpool.
func NewCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepository{pool: pool}
}

func (r *campaignRepository) Upsert(ctx context.Context, c domain.CampaignDetails) error {
	if r.pool == nil {
		return fmt.Errorf("campaign repository not initialized")
	}

	boundaries, err := json.Marshal(c.Boundaries)
	if err != nil {
		return fmt.Errorf("failed to encode campaign boundaries: %w", err)
	}
	resources, err := json.Marshal(c.Resources)
	if err != nil {
		return fmt.Errorf("failed to encode campaign resources: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO campaign_details (id, tenant_id, campaign_number, campaign_name, project_type,
		     hierarchy_type, status, project_id, start_date, end_date, boundaries, resources,
		     created_by, created_time, last_modified_by, last_modified_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		     status = EXCLUDED.status,
		     project_id = EXCLUDED.project_id,
		     boundaries = EXCLUDED.boundaries,
		     resources = EXCLUDED.resources,
		     last_modified_by = EXCLUDED.last_modified_by,
		     last_modified_time = EXCLUDED.last_modified_time`,
		c.ID, c.TenantID, c.CampaignNumber, c.CampaignName, c.ProjectType,
		c.HierarchyType, c.Status, c.ProjectID, c.StartDate, c.EndDate, boundaries, resources,
		c.AuditDetails.CreatedBy, c.AuditDetails.CreatedTime, c.AuditDetails.LastModifiedBy, c.AuditDetails.LastModifiedTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign %s: %w", c.ID, err)
	}
	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (domain.CampaignDetails, error) {
	if r.pool == nil {
		return domain.CampaignDetails{}, fmt.Errorf("campaign repository not initialized")
	}

	var (
		c                     domain.CampaignDetails
		boundaries, resources []byte
	)
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, tenant_id, campaign_number, campaign_name, project_type, hierarchy_type, status,
		     project_id, start_date, end_date, boundaries, resources,
		     created_by, created_time, last_modified_by, last_modified_time
		 FROM campaign_details
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(
		&c.ID, &c.TenantID, &c.CampaignNumber, &c.CampaignName, &c.ProjectType, &c.HierarchyType, &c.Status,
		&c.ProjectID, &c.StartDate, &c.EndDate, &boundaries, &resources,
		&c.AuditDetails.CreatedBy, &c.AuditDetails.CreatedTime, &c.AuditDetails.LastModifiedBy, &c.AuditDetails.LastModifiedTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CampaignDetails{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	if err != nil {
		return domain.CampaignDetails{}, fmt.Errorf("failed to load campaign %s: %w", id, err)
	}
	if err := json.Unmarshal(boundaries, &c.Boundaries); err != nil {
		return domain.CampaignDetails{}, fmt.Errorf("failed to decode campaign boundaries: %w", err)
	}
	if err := json.Unmarshal(resources, &c.Resources); err != nil {
		return domain.CampaignDetails{}, fmt.Errorf("failed to decode campaign resources: %w", err)
	}
	return c, nil
}
