package validation

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/cache"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
)

// RelationshipSearcher looks up boundary relationship trees.
type RelationshipSearcher interface {
	SearchRelationships(ctx context.Context, info client.RequestInfo, s client.RelationshipSearch) ([]domain.Boundary, error)
}

// BoundaryCodes resolves hierarchy codes through the boundary service,
// memoizing each tenant/hierarchy pair in the cache.
type BoundaryCodes struct {
	boundaries RelationshipSearcher
	cache      cache.Cache
	logger     *logrus.Entry
}

// NewBoundaryCodes builds a BoundaryCodes source. c may be nil.
func NewBoundaryCodes(boundaries RelationshipSearcher, c cache.Cache, logger *logrus.Entry) *BoundaryCodes {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BoundaryCodes{boundaries: boundaries, cache: c, logger: logger}
}

var _ HierarchyCodes = (*BoundaryCodes)(nil)

// Codes returns every boundary code reachable in hierarchyType.
func (b *BoundaryCodes) Codes(ctx context.Context, info client.RequestInfo, tenantID, hierarchyType string) (map[string]bool, error) {
	key := fmt.Sprintf("boundary-codes:%s:%s", tenantID, hierarchyType)

	var cached []string
	if ok, err := cache.GetJSON(ctx, b.cache, key, &cached); err != nil {
		b.logger.WithError(err).Warn("boundary code cache read failed")
	} else if ok {
		return toSet(cached), nil
	}

	trees, err := b.boundaries.SearchRelationships(ctx, info, client.RelationshipSearch{
		TenantID:        tenantID,
		HierarchyType:   hierarchyType,
		IncludeChildren: true,
	})
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0)
	for _, tree := range trees {
		for code := range tree.Flatten() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	if err := cache.SetJSON(ctx, b.cache, key, codes); err != nil {
		b.logger.WithError(err).Warn("boundary code cache write failed")
	}
	return toSet(codes), nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
