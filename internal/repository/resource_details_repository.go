package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthcampaign/project-factory/internal/domain"
)

type resourceDetailsRepository struct {
	pool *pgxpool.Pool
}

// NewResourceDetailsRepository wires a repository backed by pgxpool.
func NewResourceDetailsRepository(pool *pgxpool.Pool) ResourceDetailsRepository {
	return &resourceDetailsRepository{pool: pool}
}

func (r *resourceDetailsRepository) Upsert(ctx context.Context, rd domain.ResourceDetails) error {
	if r.pool == nil {
		return fmt.Errorf("resource details repository not initialized")
	}

	details, err := json.Marshal(rd.AdditionalDetails)
	if err != nil {
		return fmt.Errorf("failed to encode additional details: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO resource_details (id, tenant_id, type, status, action, hierarchy_type, campaign_id,
		     file_store_id, processed_file_store_id, additional_details,
		     created_by, created_time, last_modified_by, last_modified_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		     status = EXCLUDED.status,
		     processed_file_store_id = EXCLUDED.processed_file_store_id,
		     additional_details = EXCLUDED.additional_details,
		     last_modified_by = EXCLUDED.last_modified_by,
		     last_modified_time = EXCLUDED.last_modified_time`,
		rd.ID,
		rd.TenantID,
		string(rd.Type),
		string(rd.Status),
		string(rd.Action),
		rd.HierarchyType,
		rd.CampaignID,
		rd.FileStoreID,
		rd.ProcessedFileStoreID,
		details,
		rd.AuditDetails.CreatedBy,
		rd.AuditDetails.CreatedTime,
		rd.AuditDetails.LastModifiedBy,
		rd.AuditDetails.LastModifiedTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource details %s: %w", rd.ID, err)
	}
	return nil
}

func (r *resourceDetailsRepository) Search(ctx context.Context, criteria domain.ResourceSearchCriteria) ([]domain.ResourceDetails, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("resource details repository not initialized")
	}

	query, args := buildResourceSearch(criteria)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search resource details: %w", err)
	}
	defer rows.Close()

	results := []domain.ResourceDetails{}
	for rows.Next() {
		var (
			rd                  domain.ResourceDetails
			typ, status, action string
			details             []byte
		)
		if scanErr := rows.Scan(
			&rd.ID,
			&rd.TenantID,
			&typ,
			&status,
			&action,
			&rd.HierarchyType,
			&rd.CampaignID,
			&rd.FileStoreID,
			&rd.ProcessedFileStoreID,
			&details,
			&rd.AuditDetails.CreatedBy,
			&rd.AuditDetails.CreatedTime,
			&rd.AuditDetails.LastModifiedBy,
			&rd.AuditDetails.LastModifiedTime,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan resource details: %w", scanErr)
		}
		rd.Type = domain.ResourceType(typ)
		rd.Status = domain.ResourceStatus(status)
		rd.Action = domain.ResourceAction(action)
		rd.AdditionalDetails = map[string]any{}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rd.AdditionalDetails); err != nil {
				return nil, fmt.Errorf("failed to decode additional details of %s: %w", rd.ID, err)
			}
		}
		results = append(results, rd)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate resource details: %w", rowsErr)
	}
	return results, nil
}

// buildResourceSearch renders the filtered select for criteria.
func buildResourceSearch(criteria domain.ResourceSearchCriteria) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	add("tenant_id = $%d", criteria.TenantID)
	if len(criteria.IDs) > 0 {
		add("id = ANY($%d)", criteria.IDs)
	}
	if criteria.Type != "" {
		add("type = $%d", string(criteria.Type))
	}
	if len(criteria.Statuses) > 0 {
		statuses := make([]string, len(criteria.Statuses))
		for i, s := range criteria.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}

	limit := criteria.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := criteria.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT id, tenant_id, type, status, action, hierarchy_type, campaign_id,
		     file_store_id, processed_file_store_id, additional_details,
		     created_by, created_time, last_modified_by, last_modified_time
		 FROM resource_details
		 WHERE %s
		 ORDER BY created_time DESC
		 LIMIT $%d OFFSET $%d`,
		strings.Join(where, " AND "), len(args)-1, len(args),
	)
	return query, args
}
