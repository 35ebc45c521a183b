package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/healthcampaign/project-factory/internal/domain"
)

// ResourceDetailsRepository defines the interface for resource job records
type ResourceDetailsRepository interface {
	Upsert(ctx context.Context, rd domain.ResourceDetails) error
	Search(ctx context.Context, criteria domain.ResourceSearchCriteria) ([]domain.ResourceDetails, error)
}

// ActivityRepository stores create attempts.
type ActivityRepository interface {
	Insert(ctx context.Context, activities []domain.Activity) error
	ListByResource(ctx context.Context, resourceDetailsID uuid.UUID) ([]domain.Activity, error)
}

// CampaignRepository defines the interface for campaign records
type CampaignRepository interface {
	Upsert(ctx context.Context, campaign domain.CampaignDetails) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (domain.CampaignDetails, error)
}

// ProcessTrackRepository stores campaign mapping steps.
type ProcessTrackRepository interface {
	Upsert(ctx context.Context, tracks []domain.ProcessTrack) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.ProcessTrack, error)
}
