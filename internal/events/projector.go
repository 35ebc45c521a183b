package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/repository"
)

// Tee fans every emission out to each emitter in order. All emitters are
// attempted; their errors are joined.
func Tee(emitters ...Emitter) Emitter {
	return tee(emitters)
}

type tee []Emitter

func (t tee) Emit(ctx context.Context, topic string, payload any) error {
	var errs []error
	for _, e := range t {
		if err := e.Emit(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Projector applies lifecycle events to the read model. Topics it does not
// know are ignored.
type Projector struct {
	topics     Topics
	resources  repository.ResourceDetailsRepository
	activities repository.ActivityRepository
	campaigns  repository.CampaignRepository
	tracks     repository.ProcessTrackRepository
}

var _ Emitter = (*Projector)(nil)

// NewProjector builds a Projector over the given repositories.
func NewProjector(topics Topics, resources repository.ResourceDetailsRepository, activities repository.ActivityRepository,
	campaigns repository.CampaignRepository, tracks repository.ProcessTrackRepository) *Projector {
	return &Projector{
		topics:     topics,
		resources:  resources,
		activities: activities,
		campaigns:  campaigns,
		tracks:     tracks,
	}
}

type projection struct {
	ResourceDetails *domain.ResourceDetails `json:"ResourceDetails"`
	Activities      []domain.Activity       `json:"Activities"`
	CampaignDetails *domain.CampaignDetails `json:"CampaignDetails"`
	ProcessDetails  []domain.ProcessTrack   `json:"ProcessDetails"`
}

func (p *Projector) Emit(ctx context.Context, topic string, payload any) error {
	switch topic {
	case p.topics.SaveResourceDetails, p.topics.UpdateResourceDetails, p.topics.CreateResourceActivity,
		p.topics.UpdateProjectCampaign, p.topics.SaveProcessTrack, p.topics.UpdateProcessTrack:
	default:
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	var proj projection
	if err := json.Unmarshal(raw, &proj); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", topic, err)
	}

	switch topic {
	case p.topics.SaveResourceDetails, p.topics.UpdateResourceDetails:
		if proj.ResourceDetails == nil {
			return fmt.Errorf("%s payload has no ResourceDetails", topic)
		}
		return p.resources.Upsert(ctx, *proj.ResourceDetails)
	case p.topics.CreateResourceActivity:
		return p.activities.Insert(ctx, proj.Activities)
	case p.topics.UpdateProjectCampaign:
		if proj.CampaignDetails == nil {
			return fmt.Errorf("%s payload has no CampaignDetails", topic)
		}
		return p.campaigns.Upsert(ctx, *proj.CampaignDetails)
	default:
		return p.tracks.Upsert(ctx, proj.ProcessDetails)
	}
}
