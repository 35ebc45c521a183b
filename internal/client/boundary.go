package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/healthcampaign/project-factory/internal/domain"
)

// BoundaryClient queries the boundary service.
type BoundaryClient struct {
	c                *Client
	relationshipPath string
	hierarchyPath    string
}

// NewBoundaryClient binds the relationship and hierarchy search paths.
func NewBoundaryClient(c *Client, relationshipPath, hierarchyPath string) *BoundaryClient {
	return &BoundaryClient{c: c, relationshipPath: relationshipPath, hierarchyPath: hierarchyPath}
}

// RelationshipSearch filters boundary relationship lookups.
type RelationshipSearch struct {
	TenantID        string
	HierarchyType   string
	BoundaryType    string
	Parent          string
	Codes           []string
	IncludeChildren bool
}

func (s RelationshipSearch) query() url.Values {
	q := url.Values{}
	q.Set("tenantId", s.TenantID)
	q.Set("hierarchyType", s.HierarchyType)
	if s.BoundaryType != "" {
		q.Set("boundaryType", s.BoundaryType)
	}
	if s.Parent != "" {
		q.Set("parent", s.Parent)
	}
	if len(s.Codes) > 0 {
		q.Set("codes", strings.Join(s.Codes, ","))
	}
	q.Set("includeChildren", strconv.FormatBool(s.IncludeChildren))
	return q
}

// SearchRelationships returns the boundary trees matching s.
func (b *BoundaryClient) SearchRelationships(ctx context.Context, info RequestInfo, s RelationshipSearch) ([]domain.Boundary, error) {
	var out struct {
		TenantBoundary []struct {
			HierarchyType string            `json:"hierarchyType"`
			Boundary      []domain.Boundary `json:"boundary"`
		} `json:"TenantBoundary"`
	}
	body := map[string]any{"RequestInfo": info}
	if _, err := b.c.PostJSON(ctx, b.relationshipPath, s.query(), body, &out); err != nil {
		return nil, fmt.Errorf("boundary relationship search failed: %w", err)
	}
	var trees []domain.Boundary
	for _, tb := range out.TenantBoundary {
		trees = append(trees, tb.Boundary...)
	}
	return trees, nil
}

// SearchHierarchy returns the hierarchy definition for hierarchyType.
func (b *BoundaryClient) SearchHierarchy(ctx context.Context, info RequestInfo, tenantID, hierarchyType string) (domain.BoundaryHierarchy, error) {
	body := map[string]any{
		"RequestInfo": info,
		"BoundaryTypeHierarchySearchCriteria": map[string]any{
			"tenantId":      tenantID,
			"hierarchyType": hierarchyType,
		},
	}
	var out struct {
		BoundaryHierarchy []domain.BoundaryHierarchy `json:"BoundaryHierarchy"`
	}
	if _, err := b.c.PostJSON(ctx, b.hierarchyPath, nil, body, &out); err != nil {
		return domain.BoundaryHierarchy{}, fmt.Errorf("boundary hierarchy search failed: %w", err)
	}
	if len(out.BoundaryHierarchy) == 0 {
		return domain.BoundaryHierarchy{}, domain.NewAppError(http.StatusBadRequest, domain.CodeBoundaryNotFound, "Boundary hierarchy not found",
			fmt.Sprintf("no hierarchy %s for tenant %s", hierarchyType, tenantID))
	}
	return out.BoundaryHierarchy[0], nil
}
