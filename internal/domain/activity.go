package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity records one downstream HTTP creation attempt.
type Activity struct {
	ID                uuid.UUID    `json:"id"`
	TenantID          string       `json:"tenantId"`
	ResourceDetailsID uuid.UUID    `json:"resourceDetailsId"`
	Type              string       `json:"type"`
	URL               string       `json:"url"`
	RequestPayload    any          `json:"requestPayload"`
	ResponsePayload   any          `json:"responsePayload"`
	StatusCode        int          `json:"statusCode"`
	AuditDetails      AuditDetails `json:"auditDetails"`
}

// NewActivity builds an immutable attempt record.
func NewActivity(resource ResourceDetails, activityType, url string, request, response any, statusCode int, now time.Time) Activity {
	actor := resource.AuditDetails.LastModifiedBy
	return Activity{
		ID:                uuid.New(),
		TenantID:          resource.TenantID,
		ResourceDetailsID: resource.ID,
		Type:              activityType,
		URL:               url,
		RequestPayload:    request,
		ResponsePayload:   response,
		StatusCode:        statusCode,
		AuditDetails:      NewAuditDetails(actor, now),
	}
}
