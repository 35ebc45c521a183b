package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ProjectAddress ties a project to a boundary.
type ProjectAddress struct {
	TenantID     string `json:"tenantId"`
	Boundary     string `json:"boundary"`
	BoundaryType string `json:"boundaryType"`
}

// Project is the project service's project record.
type Project struct {
	ID            string         `json:"id,omitempty"`
	TenantID      string         `json:"tenantId"`
	Name          string         `json:"name"`
	ProjectType   string         `json:"projectType"`
	ReferenceID   string         `json:"referenceID"`
	Parent        string         `json:"parent,omitempty"`
	StartDate     int64          `json:"startDate"`
	EndDate       int64          `json:"endDate"`
	IsTaskEnabled bool           `json:"isTaskEnabled"`
	Address       ProjectAddress `json:"address"`
}

// ProjectClient talks to the project service.
type ProjectClient struct {
	c         *Client
	endpoints Endpoints
}

// NewProjectClient binds the project endpoints.
func NewProjectClient(c *Client, endpoints Endpoints) *ProjectClient {
	return &ProjectClient{c: c, endpoints: endpoints}
}

// SearchByBoundaries returns the campaign's projects sitting on any of codes.
func (p *ProjectClient) SearchByBoundaries(ctx context.Context, info RequestInfo, tenantID, referenceID string, codes []string) ([]Project, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	criteria := make([]map[string]any, 0, len(codes))
	for _, code := range codes {
		criteria = append(criteria, map[string]any{
			"tenantId":    tenantID,
			"referenceID": referenceID,
			"address":     map[string]any{"boundary": code},
		})
	}
	q := url.Values{}
	q.Set("tenantId", tenantID)
	q.Set("limit", strconv.Itoa(len(codes)*2+10))
	q.Set("offset", "0")
	var out struct {
		Project []Project `json:"Project"`
	}
	body := map[string]any{"RequestInfo": info, "Projects": criteria}
	if _, err := p.c.PostJSON(ctx, p.endpoints.ProjectSearch, q, body, &out); err != nil {
		return nil, fmt.Errorf("project search failed: %w", err)
	}
	return out.Project, nil
}

// Create creates one project and returns it with its server id.
func (p *ProjectClient) Create(ctx context.Context, info RequestInfo, project Project) (Project, error) {
	var out struct {
		Project []Project `json:"Project"`
	}
	body := map[string]any{"RequestInfo": info, "Projects": []Project{project}}
	if _, err := p.c.PostJSON(ctx, p.endpoints.ProjectCreate, nil, body, &out); err != nil {
		return Project{}, fmt.Errorf("project create failed: %w", err)
	}
	if len(out.Project) == 0 || out.Project[0].ID == "" {
		return Project{}, fmt.Errorf("project create for boundary %s returned no id", project.Address.Boundary)
	}
	return out.Project[0], nil
}

// CreateFacilityLink maps a facility onto a project.
func (p *ProjectClient) CreateFacilityLink(ctx context.Context, info RequestInfo, tenantID, projectID, facilityID string) error {
	body := map[string]any{
		"RequestInfo": info,
		"ProjectFacility": map[string]any{
			"tenantId":   tenantID,
			"projectId":  projectID,
			"facilityId": facilityID,
		},
	}
	if _, err := p.c.PostJSON(ctx, p.endpoints.ProjectFacilityCreate, nil, body, nil); err != nil {
		return fmt.Errorf("project facility create failed: %w", err)
	}
	return nil
}

// CreateStaffLink maps a staff user onto a project.
func (p *ProjectClient) CreateStaffLink(ctx context.Context, info RequestInfo, tenantID, projectID, userID string, startDate, endDate int64) error {
	body := map[string]any{
		"RequestInfo": info,
		"ProjectStaff": map[string]any{
			"tenantId":  tenantID,
			"projectId": projectID,
			"userId":    userID,
			"startDate": startDate,
			"endDate":   endDate,
		},
	}
	if _, err := p.c.PostJSON(ctx, p.endpoints.ProjectStaffCreate, nil, body, nil); err != nil {
		return fmt.Errorf("project staff create failed: %w", err)
	}
	return nil
}
