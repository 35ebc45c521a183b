package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/healthcampaign/project-factory/internal/client"
)

// Searcher posts a JSON search request.
type Searcher interface {
	PostJSON(ctx context.Context, path string, query url.Values, body, target any) (*client.Response, error)
}

// SearchRequest describes one paginated search.
type SearchRequest struct {
	Path        string
	Limit       int
	ResponseKey string
	Query       url.Values
	Body        map[string]any
	RequestInfo client.RequestInfo
}

// PerformSearch drains a paginated search, advancing the offset by the limit
// until a page comes back shorter than the limit.
func PerformSearch(ctx context.Context, s Searcher, req SearchRequest) ([]map[string]any, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("search limit must be positive, got %d", req.Limit)
	}
	body := make(map[string]any, len(req.Body)+1)
	for k, v := range req.Body {
		body[k] = v
	}
	body["RequestInfo"] = req.RequestInfo

	var all []map[string]any
	for offset := 0; ; offset += req.Limit {
		q := url.Values{}
		for k, v := range req.Query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("limit", strconv.Itoa(req.Limit))
		q.Set("offset", strconv.Itoa(offset))

		var out map[string]json.RawMessage
		if _, err := s.PostJSON(ctx, req.Path, q, body, &out); err != nil {
			return nil, fmt.Errorf("search %s at offset %d failed: %w", req.Path, offset, err)
		}
		var page []map[string]any
		if raw, ok := out[req.ResponseKey]; ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("failed to decode %s from %s: %w", req.ResponseKey, req.Path, err)
			}
		}
		all = append(all, page...)
		if len(page) < req.Limit {
			return all, nil
		}
	}
}
