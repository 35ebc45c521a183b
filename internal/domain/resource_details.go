package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResourceType identifies the kind of sheet a bulk upload carries.
type ResourceType string

const (
	ResourceTypeBoundary           ResourceType = "boundary"
	ResourceTypeBoundaryWithTarget ResourceType = "boundaryWithTarget"
	ResourceTypeFacility           ResourceType = "facility"
	ResourceTypeUser               ResourceType = "user"
)

// IsValid reports whether t is one of the supported resource types.
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceTypeBoundary, ResourceTypeBoundaryWithTarget, ResourceTypeFacility, ResourceTypeUser:
		return true
	}
	return false
}

// ResourceAction selects between dry-run validation and full creation.
type ResourceAction string

const (
	ResourceActionCreate   ResourceAction = "create"
	ResourceActionValidate ResourceAction = "validate"
)

// ResourceStatus is the lifecycle state of a bulk upload job.
type ResourceStatus string

const (
	ResourceStatusAccepted       ResourceStatus = "data-accepted"
	ResourceStatusInProgress     ResourceStatus = "in-progress"
	ResourceStatusCompleted      ResourceStatus = "completed"
	ResourceStatusInvalid        ResourceStatus = "invalid"
	ResourceStatusFailed         ResourceStatus = "failed"
	ResourceStatusPersisterError ResourceStatus = "PERSISTER_ERROR"
)

// IsTerminal reports whether no further transition is expected.
func (s ResourceStatus) IsTerminal() bool {
	switch s {
	case ResourceStatusCompleted, ResourceStatusInvalid, ResourceStatusFailed, ResourceStatusPersisterError:
		return true
	}
	return false
}

// AuditDetails mirrors the audit block carried by every downstream record.
// Times are epoch milliseconds.
type AuditDetails struct {
	CreatedBy        string `json:"createdBy"`
	CreatedTime      int64  `json:"createdTime"`
	LastModifiedBy   string `json:"lastModifiedBy"`
	LastModifiedTime int64  `json:"lastModifiedTime"`
}

// NewAuditDetails stamps creation and modification with the same actor and time.
func NewAuditDetails(actor string, now time.Time) AuditDetails {
	ms := now.UnixMilli()
	return AuditDetails{
		CreatedBy:        actor,
		CreatedTime:      ms,
		LastModifiedBy:   actor,
		LastModifiedTime: ms,
	}
}

// Touch updates the modification stamp.
func (a *AuditDetails) Touch(actor string, now time.Time) {
	if actor != "" {
		a.LastModifiedBy = actor
	}
	a.LastModifiedTime = now.UnixMilli()
}

// ResourceDetails is one bulk-upload job.
type ResourceDetails struct {
	ID                   uuid.UUID      `json:"id"`
	Type                 ResourceType   `json:"type"`
	TenantID             string         `json:"tenantId"`
	FileStoreID          string         `json:"fileStoreId"`
	ProcessedFileStoreID string         `json:"processedFileStoreId,omitempty"`
	Action               ResourceAction `json:"action"`
	Status               ResourceStatus `json:"status"`
	HierarchyType        string         `json:"hierarchyType"`
	CampaignID           string         `json:"campaignId,omitempty"`
	AdditionalDetails    map[string]any `json:"additionalDetails"`
	AuditDetails         AuditDetails   `json:"auditDetails"`
}

// NewResourceDetails creates a freshly accepted job.
func NewResourceDetails(resourceType ResourceType, tenantID, fileStoreID string, action ResourceAction, hierarchyType, actor string, now time.Time) ResourceDetails {
	return ResourceDetails{
		ID:                uuid.New(),
		Type:              resourceType,
		TenantID:          tenantID,
		FileStoreID:       fileStoreID,
		Action:            action,
		Status:            ResourceStatusAccepted,
		HierarchyType:     hierarchyType,
		AdditionalDetails: map[string]any{},
		AuditDetails:      NewAuditDetails(actor, now),
	}
}

// SetError records a structured error snapshot in additionalDetails.
func (r *ResourceDetails) SetError(snapshot ErrorSnapshot) {
	if r.AdditionalDetails == nil {
		r.AdditionalDetails = map[string]any{}
	}
	r.AdditionalDetails["error"] = snapshot
}

// SetDetail stores a free-form value in additionalDetails.
func (r *ResourceDetails) SetDetail(key string, value any) {
	if r.AdditionalDetails == nil {
		r.AdditionalDetails = map[string]any{}
	}
	r.AdditionalDetails[key] = value
}

// ResourceSearchCriteria narrows resource detail lookups.
type ResourceSearchCriteria struct {
	IDs      []uuid.UUID      `json:"id,omitempty"`
	TenantID string           `json:"tenantId"`
	Type     ResourceType     `json:"type,omitempty"`
	Statuses []ResourceStatus `json:"status,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}
