package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/cache"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
)

// DefaultSchemaCode is the master data schema holding admin console sheet schemas.
const DefaultSchemaCode = "HCM-ADMIN-CONSOLE.adminSchema"

// MDMSSearcher fetches raw master data records.
type MDMSSearcher interface {
	Search(ctx context.Context, info client.RequestInfo, tenantID, schemaCode string, uniqueIdentifiers []string) ([]json.RawMessage, error)
}

// Resolver fetches and normalizes per-resource validation schemas.
type Resolver struct {
	mdms       MDMSSearcher
	cache      cache.Cache
	schemaCode string
	logger     *logrus.Entry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache memoizes normalized schemas.
func WithCache(c cache.Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithSchemaCode overrides DefaultSchemaCode.
func WithSchemaCode(code string) Option {
	return func(r *Resolver) {
		if code != "" {
			r.schemaCode = code
		}
	}
}

// WithLogger sets the logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(r *Resolver) {
		if entry != nil {
			r.logger = entry
		}
	}
}

// NewResolver builds a Resolver.
func NewResolver(mdms MDMSSearcher, opts ...Option) *Resolver {
	r := &Resolver{mdms: mdms, schemaCode: DefaultSchemaCode, logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveSchema returns the schema for resourceType. With a campaign type the
// "<type>.<campaignType>" record is preferred, falling back to "<type>".
func (r *Resolver) ResolveSchema(ctx context.Context, info client.RequestInfo, tenantID string, resourceType domain.ResourceType, campaignType string) (domain.Schema, error) {
	identifiers := []string{string(resourceType)}
	if campaignType != "" {
		identifiers = []string{string(resourceType) + "." + campaignType, string(resourceType)}
	}

	for _, id := range identifiers {
		key := fmt.Sprintf("schema:%s:%s:%s", tenantID, r.schemaCode, id)
		var cached domain.Schema
		if ok, err := cache.GetJSON(ctx, r.cache, key, &cached); err != nil {
			r.logger.WithError(err).Warn("schema cache read failed")
		} else if ok {
			return cached, nil
		}

		records, err := r.mdms.Search(ctx, info, tenantID, r.schemaCode, []string{id})
		if err != nil {
			return domain.Schema{}, err
		}
		if len(records) == 0 {
			continue
		}
		s, err := Normalize(records[0])
		if err != nil {
			return domain.Schema{}, err
		}
		if err := cache.SetJSON(ctx, r.cache, key, s); err != nil {
			r.logger.WithError(err).Warn("schema cache write failed")
		}
		return s, nil
	}
	return domain.Schema{}, domain.ErrSchemaAbsent(resourceType, campaignType)
}

type rawProperty struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	IsRequired   bool     `json:"isRequired"`
	IsUnique     bool     `json:"isUnique"`
	Enum         []string `json:"enum"`
	MinLength    *int     `json:"minLength"`
	MaxLength    *int     `json:"maxLength"`
	Minimum      *float64 `json:"minimum"`
	Maximum      *float64 `json:"maximum"`
	Pattern      string   `json:"pattern"`
	OrderNumber  *int     `json:"orderNumber"`
	HideColumn   bool     `json:"hideColumn"`
	FreezeColumn bool     `json:"freezeColumn"`
	ErrorMessage string   `json:"errorMessage"`
	Description  string   `json:"description"`
}

type rawSchema struct {
	Title      string `json:"title"`
	Properties struct {
		StringProperties []rawProperty `json:"stringProperties"`
		NumberProperties []rawProperty `json:"numberProperties"`
		EnumProperties   []rawProperty `json:"enumProperties"`
	} `json:"properties"`
	Required []string `json:"required"`
	Unique   []string `json:"unique"`
}

// Normalize flattens the typed property lists into one property map with
// derived indexes. Columns are ordered by orderNumber, ties alphabetical,
// unnumbered columns last.
func Normalize(raw json.RawMessage) (domain.Schema, error) {
	var rs rawSchema
	if err := json.Unmarshal(raw, &rs); err != nil {
		return domain.Schema{}, fmt.Errorf("failed to decode schema: %w", err)
	}

	s := domain.Schema{
		Title:         rs.Title,
		Properties:    make(map[string]domain.Property),
		ErrorMessages: make(map[string]string),
	}
	required := make(map[string]bool)
	unique := make(map[string]bool)
	for _, name := range rs.Required {
		required[name] = true
	}
	for _, name := range rs.Unique {
		unique[name] = true
	}

	add := func(props []rawProperty, fallback domain.PropertyType) {
		for _, p := range props {
			if p.Name == "" {
				continue
			}
			t := domain.PropertyType(p.Type)
			if t == "" || fallback == domain.PropertyTypeEnum {
				t = fallback
			}
			s.Properties[p.Name] = domain.Property{
				Name:         p.Name,
				Type:         t,
				IsRequired:   p.IsRequired || required[p.Name],
				IsUnique:     p.IsUnique || unique[p.Name],
				Enum:         p.Enum,
				MinLength:    p.MinLength,
				MaxLength:    p.MaxLength,
				Minimum:      p.Minimum,
				Maximum:      p.Maximum,
				Pattern:      p.Pattern,
				OrderNumber:  p.OrderNumber,
				HideColumn:   p.HideColumn,
				FreezeColumn: p.FreezeColumn,
				ErrorMessage: p.ErrorMessage,
				Description:  p.Description,
			}
			if p.IsRequired {
				required[p.Name] = true
			}
			if p.IsUnique {
				unique[p.Name] = true
			}
		}
	}
	add(rs.Properties.StringProperties, domain.PropertyTypeString)
	add(rs.Properties.NumberProperties, domain.PropertyTypeNumber)
	add(rs.Properties.EnumProperties, domain.PropertyTypeEnum)

	for name := range s.Properties {
		s.Columns = append(s.Columns, name)
	}
	sort.SliceStable(s.Columns, func(i, j int) bool {
		a, b := s.Properties[s.Columns[i]].OrderNumber, s.Properties[s.Columns[j]].OrderNumber
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return s.Columns[i] < s.Columns[j]
	})

	for _, name := range s.Columns {
		p := s.Properties[name]
		if p.IsRequired {
			s.Required = append(s.Required, name)
		}
		if p.IsUnique {
			s.Unique = append(s.Unique, name)
		}
		if p.HideColumn {
			s.ColumnsToHide = append(s.ColumnsToHide, name)
		}
		if p.FreezeColumn {
			s.ColumnsToBeFreezed = append(s.ColumnsToBeFreezed, name)
		}
		if p.ErrorMessage != "" {
			s.ErrorMessages[name] = p.ErrorMessage
		}
	}
	// required/unique entries without a property definition still count
	for _, name := range sortedKeys(required) {
		if _, ok := s.Properties[name]; !ok {
			s.Required = append(s.Required, name)
		}
	}
	for _, name := range sortedKeys(unique) {
		if _, ok := s.Properties[name]; !ok {
			s.Unique = append(s.Unique, name)
		}
	}
	return s, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
