package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// MDMSClient reads master data records.
type MDMSClient struct {
	c    *Client
	path string
}

// NewMDMSClient binds the search path.
func NewMDMSClient(c *Client, path string) *MDMSClient {
	return &MDMSClient{c: c, path: path}
}

type mdmsCriteria struct {
	TenantID          string   `json:"tenantId"`
	SchemaCode        string   `json:"schemaCode"`
	UniqueIdentifiers []string `json:"uniqueIdentifiers,omitempty"`
	Limit             int      `json:"limit,omitempty"`
}

type mdmsRecord struct {
	Data json.RawMessage `json:"data"`
}

// Search returns the data payload of every matching record.
func (m *MDMSClient) Search(ctx context.Context, info RequestInfo, tenantID, schemaCode string, uniqueIdentifiers []string) ([]json.RawMessage, error) {
	body := map[string]any{
		"RequestInfo": info,
		"MdmsCriteria": mdmsCriteria{
			TenantID:          tenantID,
			SchemaCode:        schemaCode,
			UniqueIdentifiers: uniqueIdentifiers,
			Limit:             100,
		},
	}
	var out struct {
		MDMS []mdmsRecord `json:"mdms"`
	}
	if _, err := m.c.PostJSON(ctx, m.path, nil, body, &out); err != nil {
		return nil, fmt.Errorf("mdms search %s failed: %w", schemaCode, err)
	}
	data := make([]json.RawMessage, 0, len(out.MDMS))
	for _, rec := range out.MDMS {
		if len(rec.Data) > 0 {
			data = append(data, rec.Data)
		}
	}
	return data, nil
}
