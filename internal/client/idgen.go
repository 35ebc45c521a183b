package client

import (
	"context"
	"fmt"
)

// IDGenClient generates formatted ids.
type IDGenClient struct {
	c    *Client
	path string
}

// NewIDGenClient binds the generate path.
func NewIDGenClient(c *Client, path string) *IDGenClient {
	return &IDGenClient{c: c, path: path}
}

type idRequest struct {
	IDName   string `json:"idName"`
	TenantID string `json:"tenantId"`
	Format   string `json:"format,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// Generate returns count ids for idName.
func (g *IDGenClient) Generate(ctx context.Context, info RequestInfo, tenantID, idName, format string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"RequestInfo": info,
		"idRequests":  []idRequest{{IDName: idName, TenantID: tenantID, Format: format, Count: count}},
	}
	var out struct {
		IDResponses []struct {
			ID string `json:"id"`
		} `json:"idResponses"`
	}
	if _, err := g.c.PostJSON(ctx, g.path, nil, body, &out); err != nil {
		return nil, fmt.Errorf("id generation for %s failed: %w", idName, err)
	}
	if len(out.IDResponses) < count {
		return nil, fmt.Errorf("id generation for %s returned %d ids, want %d", idName, len(out.IDResponses), count)
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = out.IDResponses[i].ID
	}
	return ids, nil
}
