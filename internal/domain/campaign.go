package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Campaign statuses the mapping flow moves between.
const (
	CampaignStatusDrafted    = "drafted"
	CampaignStatusInProgress = "In Progress"
	CampaignStatusFailed     = "failed"
)

// CampaignBoundary is one boundary selected for a campaign.
type CampaignBoundary struct {
	Code   string `json:"code"`
	Type   string `json:"type"`
	IsRoot bool   `json:"isRoot,omitempty"`
}

// CampaignResource links an uploaded sheet to a campaign.
type CampaignResource struct {
	Type              ResourceType `json:"type"`
	FilestoreID       string       `json:"filestoreId"`
	ResourceDetailsID string       `json:"resourceId"`
}

// CampaignDetails is the campaign being mapped onto projects.
type CampaignDetails struct {
	ID             uuid.UUID          `json:"id"`
	TenantID       string             `json:"tenantId"`
	CampaignNumber string             `json:"campaignNumber"`
	CampaignName   string             `json:"campaignName"`
	ProjectType    string             `json:"projectType"`
	HierarchyType  string             `json:"hierarchyType"`
	Status         string             `json:"status"`
	ProjectID      string             `json:"projectId,omitempty"`
	StartDate      int64              `json:"startDate"`
	EndDate        int64              `json:"endDate"`
	Boundaries     []CampaignBoundary `json:"boundaries"`
	Resources      []CampaignResource `json:"resources"`
	AuditDetails   AuditDetails       `json:"auditDetails"`
}

// ResourceIDs returns the resource detail ids the campaign depends on.
func (c CampaignDetails) ResourceIDs() []string {
	ids := make([]string, 0, len(c.Resources))
	for _, r := range c.Resources {
		if r.ResourceDetailsID != "" {
			ids = append(ids, r.ResourceDetailsID)
		}
	}
	return ids
}

// BoundaryProject is one node of the boundary to project mapping.
type BoundaryProject struct {
	Parent       string `json:"parent,omitempty"`
	BoundaryType string `json:"boundaryType"`
	ProjectID    string `json:"projectId,omitempty"`
}

// BoundaryProjectMapping maps a boundary code to its project node.
type BoundaryProjectMapping map[string]*BoundaryProject

// RootFirst orders codes so every parent precedes its children.
// Codes with an unknown parent are treated as roots.
func (m BoundaryProjectMapping) RootFirst() []string {
	children := make(map[string][]string, len(m))
	var roots []string
	for code, node := range m {
		if node.Parent == "" {
			roots = append(roots, code)
			continue
		}
		if _, ok := m[node.Parent]; !ok {
			roots = append(roots, code)
			continue
		}
		children[node.Parent] = append(children[node.Parent], code)
	}
	sort.Strings(roots)
	ordered := make([]string, 0, len(m))
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		ordered = append(ordered, code)
		kids := children[code]
		sort.Strings(kids)
		queue = append(queue, kids...)
	}
	return ordered
}

// ProcessTrackStatus is the state of one mapping step.
type ProcessTrackStatus string

const (
	ProcessTrackToBeCompleted ProcessTrackStatus = "toBeCompleted"
	ProcessTrackInProgress    ProcessTrackStatus = "inprogress"
	ProcessTrackCompleted     ProcessTrackStatus = "completed"
	ProcessTrackFailed        ProcessTrackStatus = "failed"
)

// Process track step types.
const (
	ProcessConfirmingResources = "confirming-resources-creation"
	ProcessCreatingProjects    = "creating-projects"
	ProcessMappingResources    = "mapping-resources"
	ProcessUpdatingCampaign    = "updating-campaign"
)

// ProcessTrack records progress of a campaign mapping step.
type ProcessTrack struct {
	ID           uuid.UUID          `json:"id"`
	CampaignID   uuid.UUID          `json:"campaignId"`
	Type         string             `json:"type"`
	Status       ProcessTrackStatus `json:"status"`
	Details      map[string]any     `json:"details,omitempty"`
	AuditDetails AuditDetails       `json:"auditDetails"`
}

// NewProcessTrack starts a step in progress.
func NewProcessTrack(campaignID uuid.UUID, processType, actor string, now time.Time) ProcessTrack {
	return ProcessTrack{
		ID:           uuid.New(),
		CampaignID:   campaignID,
		Type:         processType,
		Status:       ProcessTrackInProgress,
		AuditDetails: NewAuditDetails(actor, now),
	}
}
