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

type processTrackRepository struct {
	pool *pgxpool.Pool
}

// NewProcessTrackRepository wires a repository backed by pgxpool.
func NewProcessTrackRepository(pool *pgxpool.Pool) ProcessTrackRepository {
	return &processTrackRepository{pool: pool}
}

func (r *processTrackRepository) Upsert(ctx context.Context, tracks []domain.ProcessTrack) error {
	if r.pool == nil {
		return fmt.Errorf("process track repository not initialized")
	}
	if len(tracks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tracks {
		details, err := json.Marshal(t.Details)
		if err != nil {
			return fmt.Errorf("failed to encode process track details: %w", err)
		}
		batch.Queue(
			`INSERT INTO campaign_process (id, campaign_id, type, status, details,
			     created_by, created_time, last_modified_by, last_modified_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			     status = EXCLUDED.status,
			     details = EXCLUDED.details,
			     last_modified_by = EXCLUDED.last_modified_by,
			     last_modified_time = EXCLUDED.last_modified_time`,
			t.ID, t.CampaignID, t.Type, string(t.Status), details,
			t.AuditDetails.CreatedBy, t.AuditDetails.CreatedTime, t.AuditDetails.LastModifiedBy, t.AuditDetails.LastModifiedTime,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for _, t := range tracks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert process track %s: %w", t.ID, err)
		}
	}
	return nil
}

func (r *processTrackRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.ProcessTrack, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("process track repository not initialized")
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, campaign_id, type, status, details,
		     created_by, created_time, last_modified_by, last_modified_time
		 FROM campaign_process
		 WHERE campaign_id = $1
		 ORDER BY created_time ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list process tracks: %w", err)
	}
	defer rows.Close()

	tracks := []domain.ProcessTrack{}
	for rows.Next() {
		var (
			t       domain.ProcessTrack
			status  string
			details []byte
		)
		if scanErr := rows.Scan(
			&t.ID, &t.CampaignID, &t.Type, &status, &details,
			&t.AuditDetails.CreatedBy, &t.AuditDetails.CreatedTime, &t.AuditDetails.LastModifiedBy, &t.AuditDetails.LastModifiedTime,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan process track: %w", scanErr)
		}
		t.Status = domain.ProcessTrackStatus(status)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &t.Details); err != nil {
				return nil, fmt.Errorf("failed to decode process track details: %w", err)
			}
		}
		tracks = append(tracks, t)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate process tracks: %w", rowsErr)
	}
	return tracks, nil
}
