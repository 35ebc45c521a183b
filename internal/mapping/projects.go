package mapping

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
)

// Projects is the project service surface the mapping flow uses.
type Projects interface {
	SearchByBoundaries(ctx context.Context, info client.RequestInfo, tenantID, referenceID string, codes []string) ([]client.Project, error)
	Create(ctx context.Context, info client.RequestInfo, project client.Project) (client.Project, error)
	CreateFacilityLink(ctx context.Context, info client.RequestInfo, tenantID, projectID, facilityID string) error
	CreateStaffLink(ctx context.Context, info client.RequestInfo, tenantID, projectID, userID string, startDate, endDate int64) error
}

// BoundaryTree returns a tenant's boundary relationships and hierarchy levels.
type BoundaryTree interface {
	SearchRelationships(ctx context.Context, info client.RequestInfo, s client.RelationshipSearch) ([]domain.Boundary, error)
	SearchHierarchy(ctx context.Context, info client.RequestInfo, tenantID, hierarchyType string) (domain.BoundaryHierarchy, error)
}

// ProjectTree makes sure every campaign boundary has a project.
type ProjectTree struct {
	projects Projects
	tree     BoundaryTree
	logger   *logrus.Entry
}

// NewProjectTree builds a ProjectTree.
func NewProjectTree(projects Projects, tree BoundaryTree, logger *logrus.Entry) *ProjectTree {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ProjectTree{projects: projects, tree: tree, logger: logger}
}

// Ensure builds the boundary to project mapping for campaign. Existing
// projects are reused; missing ones are created parent first so each child
// carries its parent's project id.
func (t *ProjectTree) Ensure(ctx context.Context, info client.RequestInfo, campaign domain.CampaignDetails) (domain.BoundaryProjectMapping, error) {
	mapping, err := t.boundaryMapping(ctx, info, campaign)
	if err != nil {
		return nil, err
	}
	order := mapping.RootFirst()

	loader := newProjectLoader(t.projects, info, campaign.TenantID, campaign.CampaignNumber)
	thunks := make([]dataloader.Thunk, len(order))
	for i, code := range order {
		thunks[i] = loader.Load(ctx, dataloader.StringKey(code))
	}
	reused := 0
	for i, code := range order {
		data, err := thunks[i]()
		if err != nil {
			return nil, err
		}
		if p, ok := data.(*client.Project); ok && p != nil {
			mapping[code].ProjectID = p.ID
			reused++
		}
	}

	created := 0
	for _, code := range order {
		node := mapping[code]
		if node.ProjectID != "" {
			continue
		}
		parentID := ""
		if node.Parent != "" {
			parentID = mapping[node.Parent].ProjectID
		}
		p, err := t.projects.Create(ctx, info, client.Project{
			TenantID:    campaign.TenantID,
			Name:        campaign.CampaignName,
			ProjectType: campaign.ProjectType,
			ReferenceID: campaign.CampaignNumber,
			Parent:      parentID,
			StartDate:   campaign.StartDate,
			EndDate:     campaign.EndDate,
			Address: client.ProjectAddress{
				TenantID:     campaign.TenantID,
				Boundary:     code,
				BoundaryType: node.BoundaryType,
			},
		})
		if err != nil {
			return nil, err
		}
		node.ProjectID = p.ID
		created++
	}

	t.logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"reused":      reused,
		"created":     created,
	}).Info("campaign projects ensured")
	return mapping, nil
}

// boundaryMapping restricts the hierarchy tree to the campaign's boundaries.
// A node's parent is its nearest selected ancestor.
func (t *ProjectTree) boundaryMapping(ctx context.Context, info client.RequestInfo, campaign domain.CampaignDetails) (domain.BoundaryProjectMapping, error) {
	hierarchy, err := t.tree.SearchHierarchy(ctx, info, campaign.TenantID, campaign.HierarchyType)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]bool)
	for _, lvl := range hierarchy.OrderedTypes() {
		levels[lvl] = true
	}
	var unknownTypes []string
	for _, b := range campaign.Boundaries {
		if b.Type != "" && !levels[b.Type] {
			unknownTypes = append(unknownTypes, b.Code+" ("+b.Type+")")
		}
	}
	if len(unknownTypes) > 0 {
		sort.Strings(unknownTypes)
		return nil, domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "Unknown boundary type",
			fmt.Sprintf("boundaries %s use types outside hierarchy %s", strings.Join(unknownTypes, ", "), campaign.HierarchyType))
	}

	trees, err := t.tree.SearchRelationships(ctx, info, client.RelationshipSearch{
		TenantID:        campaign.TenantID,
		HierarchyType:   campaign.HierarchyType,
		IncludeChildren: true,
	})
	if err != nil {
		return nil, err
	}
	all := make(map[string]domain.BoundaryProject)
	for _, tree := range trees {
		for code, node := range tree.Flatten() {
			all[code] = node
		}
	}

	selected := make(map[string]bool, len(campaign.Boundaries))
	var missing []string
	for _, b := range campaign.Boundaries {
		if _, ok := all[b.Code]; !ok {
			missing = append(missing, b.Code)
			continue
		}
		selected[b.Code] = true
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.NewAppError(http.StatusBadRequest, domain.CodeBoundaryNotFound, "Boundary not found",
			fmt.Sprintf("boundaries %s are not in hierarchy %s", strings.Join(missing, ", "), campaign.HierarchyType))
	}

	mapping := make(domain.BoundaryProjectMapping, len(selected))
	for code := range selected {
		parent := all[code].Parent
		for parent != "" && !selected[parent] {
			parent = all[parent].Parent
		}
		mapping[code] = &domain.BoundaryProject{Parent: parent, BoundaryType: all[code].BoundaryType}
	}
	return mapping, nil
}

// newProjectLoader batches project lookups by boundary code into single searches.
func newProjectLoader(projects Projects, info client.RequestInfo, tenantID, referenceID string) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		codes := keys.Keys()
		found, err := projects.SearchByBoundaries(ctx, info, tenantID, referenceID, codes)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byBoundary := make(map[string]*client.Project, len(found))
		for i := range found {
			p := &found[i]
			if p.ReferenceID != "" && p.ReferenceID != referenceID {
				continue
			}
			if _, dup := byBoundary[p.Address.Boundary]; !dup {
				byBoundary[p.Address.Boundary] = p
			}
		}

		results := make([]*dataloader.Result, len(keys))
		for i, code := range codes {
			results[i] = &dataloader.Result{Data: byBoundary[code]}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batchFn,
		dataloader.WithWait(5*time.Millisecond),
		dataloader.WithBatchCapacity(100),
	)
}
