package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// IndividualClient checks registered individuals.
type IndividualClient struct {
	c    *Client
	path string
}

// NewIndividualClient binds the search path.
func NewIndividualClient(c *Client, path string) *IndividualClient {
	return &IndividualClient{c: c, path: path}
}

// ExistingMobileNumbers returns which of numbers are already registered.
// Callers batch the input; this issues a single request.
func (i *IndividualClient) ExistingMobileNumbers(ctx context.Context, info RequestInfo, tenantID string, numbers []string) ([]string, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("tenantId", tenantID)
	q.Set("limit", strconv.Itoa(len(numbers)+1))
	q.Set("offset", "0")
	body := map[string]any{
		"RequestInfo": info,
		"Individual":  map[string]any{"mobileNumber": numbers},
	}
	var out struct {
		Individual []struct {
			MobileNumber string `json:"mobileNumber"`
		} `json:"Individual"`
	}
	if _, err := i.c.PostJSON(ctx, i.path, q, body, &out); err != nil {
		return nil, fmt.Errorf("individual search failed: %w", err)
	}
	existing := make([]string, 0, len(out.Individual))
	for _, ind := range out.Individual {
		if ind.MobileNumber != "" {
			existing = append(existing, ind.MobileNumber)
		}
	}
	return existing, nil
}
