package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/pipeline"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ResourceDetailsDTO is the upload described in a create request.
type ResourceDetailsDTO struct {
	Type              string         `json:"type" validate:"required,oneof=boundary boundaryWithTarget facility user"`
	TenantID          string         `json:"tenantId" validate:"required"`
	FileStoreID       string         `json:"fileStoreId" validate:"required"`
	Action            string         `json:"action" validate:"omitempty,oneof=create validate"`
	HierarchyType     string         `json:"hierarchyType" validate:"required"`
	CampaignID        string         `json:"campaignId"`
	AdditionalDetails map[string]any `json:"additionalDetails"`
}

// CreateResourceRequest is the body of data/_create.
type CreateResourceRequest struct {
	RequestInfo     client.RequestInfo `json:"RequestInfo"`
	ResourceDetails ResourceDetailsDTO `json:"ResourceDetails" validate:"required"`
}

// Normalize trims the identifying fields.
func (r *CreateResourceRequest) Normalize() {
	d := &r.ResourceDetails
	d.TenantID = strings.TrimSpace(d.TenantID)
	d.FileStoreID = strings.TrimSpace(d.FileStoreID)
	d.HierarchyType = strings.TrimSpace(d.HierarchyType)
}

// ToAccept converts the request for the pipeline.
func (r *CreateResourceRequest) ToAccept() pipeline.AcceptRequest {
	d := r.ResourceDetails
	return pipeline.AcceptRequest{
		RequestInfo:       r.RequestInfo,
		Type:              domain.ResourceType(d.Type),
		TenantID:          d.TenantID,
		FileStoreID:       d.FileStoreID,
		Action:            domain.ResourceAction(d.Action),
		HierarchyType:     d.HierarchyType,
		CampaignID:        d.CampaignID,
		AdditionalDetails: d.AdditionalDetails,
	}
}

// SearchCriteriaDTO filters resource details.
type SearchCriteriaDTO struct {
	IDs      []string `json:"id" validate:"omitempty,dive,uuid"`
	TenantID string   `json:"tenantId" validate:"required"`
	Type     string   `json:"type" validate:"omitempty,oneof=boundary boundaryWithTarget facility user"`
	Status   []string `json:"status"`
	Limit    int      `json:"limit" validate:"gte=0,lte=500"`
	Offset   int      `json:"offset" validate:"gte=0"`
}

// SearchResourceRequest is the body of data/_search.
type SearchResourceRequest struct {
	RequestInfo    client.RequestInfo `json:"RequestInfo"`
	SearchCriteria SearchCriteriaDTO  `json:"SearchCriteria" validate:"required"`
}

// ToCriteria converts the request for the repository.
func (r *SearchResourceRequest) ToCriteria() domain.ResourceSearchCriteria {
	c := r.SearchCriteria
	criteria := domain.ResourceSearchCriteria{
		TenantID: strings.TrimSpace(c.TenantID),
		Type:     domain.ResourceType(c.Type),
		Limit:    c.Limit,
		Offset:   c.Offset,
	}
	for _, id := range c.IDs {
		// validated as uuid above
		criteria.IDs = append(criteria.IDs, uuid.MustParse(id))
	}
	for _, s := range c.Status {
		criteria.Statuses = append(criteria.Statuses, domain.ResourceStatus(s))
	}
	return criteria
}

// CampaignBoundaryDTO is one boundary selected for a campaign.
type CampaignBoundaryDTO struct {
	Code   string `json:"code" validate:"required"`
	Type   string `json:"type" validate:"required"`
	IsRoot bool   `json:"isRoot"`
}

// CampaignResourceDTO links an upload to a campaign.
type CampaignResourceDTO struct {
	Type              string `json:"type" validate:"required"`
	FilestoreID       string `json:"filestoreId"`
	ResourceDetailsID string `json:"resourceId" validate:"omitempty,uuid"`
}

// CampaignDetailsDTO is the campaign to map.
type CampaignDetailsDTO struct {
	ID             string                `json:"id" validate:"required,uuid"`
	TenantID       string                `json:"tenantId" validate:"required"`
	CampaignNumber string                `json:"campaignNumber" validate:"required"`
	CampaignName   string                `json:"campaignName" validate:"required"`
	ProjectType    string                `json:"projectType" validate:"required"`
	HierarchyType  string                `json:"hierarchyType" validate:"required"`
	StartDate      int64                 `json:"startDate" validate:"gte=0"`
	EndDate        int64                 `json:"endDate" validate:"gtefield=StartDate"`
	Boundaries     []CampaignBoundaryDTO `json:"boundaries" validate:"required,min=1,dive"`
	Resources      []CampaignResourceDTO `json:"resources" validate:"dive"`
	AuditDetails   domain.AuditDetails   `json:"auditDetails"`
}

// MappingRequest is the body of project-type/mapping.
type MappingRequest struct {
	RequestInfo     client.RequestInfo `json:"RequestInfo"`
	CampaignDetails CampaignDetailsDTO `json:"CampaignDetails" validate:"required"`
}

// ToCampaign converts the request into a drafted campaign.
func (r *MappingRequest) ToCampaign() domain.CampaignDetails {
	d := r.CampaignDetails
	c := domain.CampaignDetails{
		ID:             uuid.MustParse(d.ID),
		TenantID:       d.TenantID,
		CampaignNumber: d.CampaignNumber,
		CampaignName:   d.CampaignName,
		ProjectType:    d.ProjectType,
		HierarchyType:  d.HierarchyType,
		Status:         domain.CampaignStatusDrafted,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		AuditDetails:   d.AuditDetails,
	}
	for _, b := range d.Boundaries {
		c.Boundaries = append(c.Boundaries, domain.CampaignBoundary{Code: b.Code, Type: b.Type, IsRoot: b.IsRoot})
	}
	for _, res := range d.Resources {
		c.Resources = append(c.Resources, domain.CampaignResource{
			Type:              domain.ResourceType(res.Type),
			FilestoreID:       res.FilestoreID,
			ResourceDetailsID: res.ResourceDetailsID,
		})
	}
	return c
}

// validationMeta validates dto and renders failures as field to rule pairs.
func validationMeta(dto any) (map[string]string, bool) {
	err := validate.Struct(dto)
	if err == nil {
		return nil, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}, false
	}
	meta := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		meta[fe.Namespace()] = rule
	}
	return meta, false
}
