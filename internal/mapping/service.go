package mapping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/events"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/resource"
	"github.com/healthcampaign/project-factory/internal/sheet"
)

// SheetReader loads a processed workbook sheet.
type SheetReader interface {
	ReadSheet(ctx context.Context, tenantID, fileStoreID, sheetKey string) (sheet.Table, error)
}

// Service maps completed campaign resources onto the campaign's projects.
type Service struct {
	poller    *Poller
	tree      *ProjectTree
	projects  Projects
	reader    SheetReader
	registry  *resource.Registry
	publisher *events.Publisher
	now       func() time.Time
	logger    *logrus.Entry
	wg        sync.WaitGroup
}

// NewService builds a Service.
func NewService(poller *Poller, tree *ProjectTree, projects Projects, reader SheetReader, registry *resource.Registry,
	publisher *events.Publisher, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		poller:    poller,
		tree:      tree,
		projects:  projects,
		reader:    reader,
		registry:  registry,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// Start runs MapCampaign in the background, detached from ctx's cancellation.
func (s *Service) Start(ctx context.Context, info client.RequestInfo, campaign domain.CampaignDetails) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.MapCampaign(context.WithoutCancel(ctx), info, campaign); err != nil {
			s.logger.WithError(err).WithField("campaign_id", campaign.ID).Error("campaign mapping failed")
		}
	}()
}

// Wait blocks until every background mapping has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// MapCampaign waits for the campaign's resources, ensures its projects, links
// facilities and staff to them and moves the campaign to In Progress. Every
// step is tracked; a failing step marks the campaign failed.
func (s *Service) MapCampaign(ctx context.Context, info client.RequestInfo, campaign domain.CampaignDetails) error {
	actor := info.ActorUUID()
	log := s.logger.WithFields(logrus.Fields{"campaign_id": campaign.ID, "tenant_id": campaign.TenantID})

	var resources []domain.ResourceDetails
	err := s.step(ctx, campaign, domain.ProcessConfirmingResources, actor, func() (map[string]any, error) {
		var err error
		resources, err = s.poller.WaitForResources(ctx, campaign.TenantID, campaign.ResourceIDs())
		return map[string]any{"resources": len(resources)}, err
	})
	if err != nil {
		return s.fail(ctx, campaign, actor, err)
	}

	var mapping domain.BoundaryProjectMapping
	err = s.step(ctx, campaign, domain.ProcessCreatingProjects, actor, func() (map[string]any, error) {
		var err error
		mapping, err = s.tree.Ensure(ctx, info, campaign)
		return map[string]any{"projects": len(mapping)}, err
	})
	if err != nil {
		return s.fail(ctx, campaign, actor, err)
	}

	err = s.step(ctx, campaign, domain.ProcessMappingResources, actor, func() (map[string]any, error) {
		return s.linkResources(ctx, info, campaign, resources, mapping)
	})
	if err != nil {
		return s.fail(ctx, campaign, actor, err)
	}

	err = s.step(ctx, campaign, domain.ProcessUpdatingCampaign, actor, func() (map[string]any, error) {
		campaign.Status = domain.CampaignStatusInProgress
		if roots := mapping.RootFirst(); len(roots) > 0 {
			campaign.ProjectID = mapping[roots[0]].ProjectID
		}
		campaign.AuditDetails.Touch(actor, s.now())
		s.publisher.CampaignUpdated(ctx, campaign)
		return map[string]any{"status": campaign.Status}, nil
	})
	if err != nil {
		return s.fail(ctx, campaign, actor, err)
	}
	log.Info("campaign mapped")
	return nil
}

// linkResources reads every created row of the facility and user resources
// and links it to the project of each boundary it names.
func (s *Service) linkResources(ctx context.Context, info client.RequestInfo, campaign domain.CampaignDetails,
	resources []domain.ResourceDetails, mapping domain.BoundaryProjectMapping) (map[string]any, error) {
	var facilities, staff, skipped int
	counts := func() map[string]any {
		return map[string]any{"facilities": facilities, "staff": staff, "skippedBoundaries": skipped}
	}
	for _, rd := range resources {
		if rd.Type != domain.ResourceTypeFacility && rd.Type != domain.ResourceTypeUser {
			continue
		}
		cfg, err := s.registry.Get(rd.Type)
		if err != nil {
			return counts(), err
		}
		fileID := rd.ProcessedFileStoreID
		if fileID == "" {
			fileID = rd.FileStoreID
		}
		table, err := s.reader.ReadSheet(ctx, campaign.TenantID, fileID, cfg.SheetName)
		if err != nil {
			return counts(), fmt.Errorf("failed to read %s sheet of resource %s: %w", rd.Type, rd.ID, err)
		}

		for _, row := range table.Rows {
			status := domain.RowStatus(row.String(sheet.StatusColumn))
			if status != domain.RowStatusCreated && status != domain.RowStatusValid {
				continue
			}
			id := row.String(cfg.UniqueIdentifierColumn)
			if id == "" {
				continue
			}
			for _, code := range resource.SplitCodes(row.Values[resource.ColumnBoundaryCode]) {
				node, ok := mapping[code]
				if !ok || node.ProjectID == "" {
					skipped++
					continue
				}
				if rd.Type == domain.ResourceTypeFacility {
					err = s.projects.CreateFacilityLink(ctx, info, campaign.TenantID, node.ProjectID, id)
					facilities++
				} else {
					err = s.projects.CreateStaffLink(ctx, info, campaign.TenantID, node.ProjectID, id, campaign.StartDate, campaign.EndDate)
					staff++
				}
				if err != nil {
					return counts(), err
				}
			}
		}
	}
	return counts(), nil
}

// step records fn as a process track, emitting it when it starts and ends.
func (s *Service) step(ctx context.Context, campaign domain.CampaignDetails, processType, actor string, fn func() (map[string]any, error)) error {
	track := domain.NewProcessTrack(campaign.ID, processType, actor, s.now())
	s.publisher.ProcessTrack(ctx, track, true)

	details, err := fn()
	track.Details = details
	track.Status = domain.ProcessTrackCompleted
	if err != nil {
		track.Status = domain.ProcessTrackFailed
		if track.Details == nil {
			track.Details = map[string]any{}
		}
		track.Details["error"] = domain.SnapshotError(err)
	}
	track.AuditDetails.Touch(actor, s.now())
	s.publisher.ProcessTrack(ctx, track, false)
	return err
}

func (s *Service) fail(ctx context.Context, campaign domain.CampaignDetails, actor string, err error) error {
	campaign.Status = domain.CampaignStatusFailed
	campaign.AuditDetails.Touch(actor, s.now())
	s.publisher.CampaignUpdated(ctx, campaign)
	return err
}
