package resource

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
)

// MatchStrategy selects how created rows are confirmed after creation.
type MatchStrategy string

const (
	// MatchByCode pairs rows with searched records sharing a precomputed code.
	MatchByCode MatchStrategy = "code"
	// MatchByEquality pairs rows with searched records equal on every submitted field.
	MatchByEquality MatchStrategy = "equality"
	// MatchByWindow counts records created by the actor since creation began.
	MatchByWindow MatchStrategy = "window"
)

// MapContext carries job-level values a mapper may need.
type MapContext struct {
	TenantID      string
	HierarchyType string
}

// RowMapper converts one sheet row into a downstream payload.
type RowMapper func(row domain.SheetRow, mc MapContext) (map[string]any, error)

// SearchBuilder returns query params and body for a search narrowed by
// field in values. An empty field means no narrowing.
type SearchBuilder func(tenantID, field string, values []string) (url.Values, map[string]any)

// SearchContract describes a paginated search endpoint.
type SearchContract struct {
	Path        string
	Limit       int
	ResponseKey string
	Build       SearchBuilder
}

// CreateBulkContract describes a bulk create endpoint.
type CreateBulkContract struct {
	Path    string
	Limit   int
	BodyKey string
}

// CodeGeneration asks for ids to be generated per created row.
type CodeGeneration struct {
	IDName string
	Format string
}

// Config is the per-resource-type create and search contract.
type Config struct {
	Type      domain.ResourceType
	SheetName string
	// UniqueIdentifier is the payload field that identifies a persisted record.
	UniqueIdentifier string
	// UniqueIdentifierColumn is the sheet column mirroring UniqueIdentifier.
	UniqueIdentifierColumn string
	// RequiresToSearchFromSheet routes a row to the search bucket when any is truthy.
	RequiresToSearchFromSheet []string
	Mapper                    RowMapper
	Search                    *SearchContract
	// CreateBulk is nil for validate-only types.
	CreateBulk *CreateBulkContract
	Match      MatchStrategy
	// SearchKey narrows the post-create search to the created records' values.
	SearchKey    string
	MatchEachKey bool
	StripFields  []string
	// BoundaryColumn is validated against the hierarchy when set.
	BoundaryColumn string
	Codes          *CodeGeneration
	UserNameColumn string
	PasswordColumn string
}

// CanCreate reports whether the type supports bulk creation.
func (c Config) CanCreate() bool {
	return c.CreateBulk != nil && c.CreateBulk.Path != ""
}

// RoutesToSearch reports whether row claims to already exist downstream.
func (c Config) RoutesToSearch(row domain.SheetRow) bool {
	for _, column := range c.RequiresToSearchFromSheet {
		if v, ok := row.Values[column]; ok && Truthy(v) {
			return true
		}
	}
	return false
}

// Registry holds the config for every supported resource type.
type Registry struct {
	configs map[domain.ResourceType]Config
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[domain.ResourceType]Config)}
}

// DefaultRegistry wires the standard configs against endpoints.
func DefaultRegistry(e client.Endpoints) *Registry {
	r := NewRegistry()
	r.Register(FacilityConfig(e))
	r.Register(UserConfig(e))
	r.Register(BoundaryConfig(e))
	r.Register(TargetConfig())
	return r
}

// Register adds or replaces the config for cfg.Type.
func (r *Registry) Register(cfg Config) {
	r.configs[cfg.Type] = cfg
}

// Get returns the config for t.
func (r *Registry) Get(t domain.ResourceType) (Config, error) {
	cfg, ok := r.configs[t]
	if !ok {
		return Config{}, domain.NewAppError(http.StatusBadRequest, domain.CodeValidationError, "Unsupported resource type",
			fmt.Sprintf("no create and search config for type %q", t))
	}
	return cfg, nil
}

// Types lists the registered resource types in order.
func (r *Registry) Types() []domain.ResourceType {
	types := make([]domain.ResourceType, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// SetMatch overrides the match strategy for t.
func (r *Registry) SetMatch(t domain.ResourceType, m MatchStrategy) error {
	cfg, err := r.Get(t)
	if err != nil {
		return err
	}
	switch m {
	case MatchByCode, MatchByEquality, MatchByWindow:
	default:
		return fmt.Errorf("unknown match strategy %q", m)
	}
	cfg.Match = m
	r.configs[t] = cfg
	return nil
}

// FacilityConfig is the facility contract.
func FacilityConfig(e client.Endpoints) Config {
	return Config{
		Type:                      domain.ResourceTypeFacility,
		SheetName:                 SheetFacilities,
		UniqueIdentifier:          "id",
		UniqueIdentifierColumn:    ColumnFacilityCode,
		RequiresToSearchFromSheet: []string{ColumnFacilityCode},
		Mapper:                    MapFacilityRow,
		Search: &SearchContract{
			Path:        e.FacilitySearch,
			Limit:       50,
			ResponseKey: "Facilities",
			Build: func(tenantID, field string, values []string) (url.Values, map[string]any) {
				criteria := map[string]any{}
				if field != "" && len(values) > 0 {
					criteria[field] = values
				}
				return tenantQuery(tenantID), map[string]any{"Facility": criteria}
			},
		},
		CreateBulk:     &CreateBulkContract{Path: e.FacilityCreate, Limit: 200, BodyKey: "Facilities"},
		Match:          MatchByEquality,
		MatchEachKey:   true,
		StripFields:    []string{"address"},
		BoundaryColumn: ColumnBoundaryCode,
	}
}

// UserConfig is the staff user contract.
func UserConfig(e client.Endpoints) Config {
	return Config{
		Type:                      domain.ResourceTypeUser,
		SheetName:                 SheetUsers,
		UniqueIdentifier:          "code",
		UniqueIdentifierColumn:    ColumnUserLoginName,
		RequiresToSearchFromSheet: []string{ColumnUserLoginName},
		Mapper:                    MapUserRow,
		Search: &SearchContract{
			Path:        e.EmployeeSearch,
			Limit:       50,
			ResponseKey: "Employees",
			Build: func(tenantID, field string, values []string) (url.Values, map[string]any) {
				q := tenantQuery(tenantID)
				if field != "" && len(values) > 0 {
					q.Set(field+"s", strings.Join(values, ","))
				}
				return q, map[string]any{}
			},
		},
		CreateBulk:     &CreateBulkContract{Path: e.EmployeeCreate, Limit: 100, BodyKey: "Employees"},
		Match:          MatchByCode,
		SearchKey:      "code",
		BoundaryColumn: ColumnBoundaryCode,
		Codes:          &CodeGeneration{IDName: "hrms.employeecode", Format: "EMP-[city]-[SEQ_EG_HRMS_EMP_CODE]"},
		UserNameColumn: ColumnUserLoginName,
		PasswordColumn: ColumnUserPassword,
	}
}

// BoundaryConfig is the boundary entity contract; codes come from the upload.
func BoundaryConfig(e client.Endpoints) Config {
	return Config{
		Type:                      domain.ResourceTypeBoundary,
		SheetName:                 SheetBoundaryData,
		UniqueIdentifier:          "id",
		UniqueIdentifierColumn:    ColumnBoundaryID,
		RequiresToSearchFromSheet: []string{ColumnBoundaryID},
		Mapper:                    MapBoundaryRow,
		Search: &SearchContract{
			Path:        e.BoundarySearch,
			Limit:       100,
			ResponseKey: "Boundary",
			Build: func(tenantID, field string, values []string) (url.Values, map[string]any) {
				q := tenantQuery(tenantID)
				if field != "" && len(values) > 0 {
					q.Set(field+"s", strings.Join(values, ","))
				}
				return q, map[string]any{}
			},
		},
		CreateBulk:  &CreateBulkContract{Path: e.BoundaryCreate, Limit: 50, BodyKey: "Boundary"},
		Match:       MatchByEquality,
		SearchKey:   "code",
		StripFields: []string{"geometry"},
	}
}

// TargetConfig is the validate-only boundary target contract.
func TargetConfig() Config {
	return Config{
		Type:           domain.ResourceTypeBoundaryWithTarget,
		SheetName:      SheetReadme,
		Mapper:         MapTargetRow,
		BoundaryColumn: ColumnBoundaryCode,
	}
}

func tenantQuery(tenantID string) url.Values {
	q := url.Values{}
	q.Set("tenantId", tenantID)
	return q
}
