package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/metrics"
)

// Topics names every topic the service writes to.
type Topics struct {
	SaveResourceDetails    string `mapstructure:"save_resource_details"`
	UpdateResourceDetails  string `mapstructure:"update_resource_details"`
	CreateResourceActivity string `mapstructure:"create_resource_activity"`
	UpdateProjectCampaign  string `mapstructure:"update_project_campaign"`
	SaveProcessTrack       string `mapstructure:"save_process_track"`
	UpdateProcessTrack     string `mapstructure:"update_process_track"`
}

// DefaultTopics returns the standard topic names.
func DefaultTopics() Topics {
	return Topics{
		SaveResourceDetails:    "save-resource-details",
		UpdateResourceDetails:  "update-resource-details",
		CreateResourceActivity: "create-resource-activity",
		UpdateProjectCampaign:  "update-project-campaign",
		SaveProcessTrack:       "save-process-track",
		UpdateProcessTrack:     "update-process-track",
	}
}

// DefaultActivityDelay separates a resource details event from its activities.
const DefaultActivityDelay = 2 * time.Second

// Publisher emits lifecycle events. Failures are logged and never returned.
type Publisher struct {
	emitter Emitter
	topics  Topics
	delay   time.Duration
	logger  *logrus.Entry
}

// NewPublisher builds a Publisher. A negative delay uses DefaultActivityDelay.
func NewPublisher(emitter Emitter, topics Topics, delay time.Duration, logger *logrus.Entry) *Publisher {
	if delay < 0 {
		delay = DefaultActivityDelay
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{emitter: emitter, topics: topics, delay: delay, logger: logger}
}

// ResourceCreated emits the initial job record.
func (p *Publisher) ResourceCreated(ctx context.Context, rd domain.ResourceDetails) {
	p.emit(ctx, p.topics.SaveResourceDetails, map[string]any{"ResourceDetails": rd})
}

// ResourceUpdated emits the job record and, after the activity delay, any
// activities recorded for it.
func (p *Publisher) ResourceUpdated(ctx context.Context, rd domain.ResourceDetails, activities []domain.Activity) {
	p.emit(ctx, p.topics.UpdateResourceDetails, map[string]any{"ResourceDetails": rd})
	if len(activities) == 0 {
		return
	}
	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	p.emit(ctx, p.topics.CreateResourceActivity, map[string]any{"Activities": activities})
}

// CampaignUpdated emits the campaign record.
func (p *Publisher) CampaignUpdated(ctx context.Context, campaign domain.CampaignDetails) {
	p.emit(ctx, p.topics.UpdateProjectCampaign, map[string]any{"CampaignDetails": campaign})
}

// ProcessTrack emits a process step; created selects the save topic.
func (p *Publisher) ProcessTrack(ctx context.Context, track domain.ProcessTrack, created bool) {
	topic := p.topics.UpdateProcessTrack
	if created {
		topic = p.topics.SaveProcessTrack
	}
	p.emit(ctx, topic, map[string]any{"ProcessDetails": []domain.ProcessTrack{track}})
}

func (p *Publisher) emit(ctx context.Context, topic string, payload any) {
	// emission survives caller cancellation
	err := p.emitter.Emit(context.WithoutCancel(ctx), topic, payload)
	metrics.Get().Emits.WithLabelValues(topic, metrics.Result(err)).Inc()
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("failed to emit event")
	}
}
