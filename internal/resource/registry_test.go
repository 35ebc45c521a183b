package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
)

func TestDefaultRegistryCoversEveryType(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry(client.DefaultEndpoints())
	for _, rt := range []domain.ResourceType{
		domain.ResourceTypeBoundary,
		domain.ResourceTypeBoundaryWithTarget,
		domain.ResourceTypeFacility,
		domain.ResourceTypeUser,
	} {
		cfg, err := r.Get(rt)
		require.NoError(t, err, rt)
		require.NotNil(t, cfg.Mapper, rt)
	}

	target, _ := r.Get(domain.ResourceTypeBoundaryWithTarget)
	require.False(t, target.CanCreate())

	_, err := r.Get("campaign")
	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
}

func TestSetMatchOverridesStrategy(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry(client.DefaultEndpoints())
	require.NoError(t, r.SetMatch(domain.ResourceTypeFacility, MatchByWindow))
	cfg, _ := r.Get(domain.ResourceTypeFacility)
	require.Equal(t, MatchByWindow, cfg.Match)
	require.Error(t, r.SetMatch(domain.ResourceTypeFacility, "fuzzy"))
}

func TestRoutesToSearch(t *testing.T) {
	t.Parallel()

	cfg := FacilityConfig(client.DefaultEndpoints())
	require.True(t, cfg.RoutesToSearch(domain.SheetRow{Values: map[string]any{ColumnFacilityCode: "F-1"}}))
	require.False(t, cfg.RoutesToSearch(domain.SheetRow{Values: map[string]any{ColumnFacilityCode: "  "}}))
	require.False(t, cfg.RoutesToSearch(domain.SheetRow{Values: map[string]any{ColumnFacilityName: "A"}}))
}

func TestSearchBuilders(t *testing.T) {
	t.Parallel()

	e := client.DefaultEndpoints()
	q, body := UserConfig(e).Search.Build("mz", "code", []string{"U1", "U2"})
	require.Equal(t, "U1,U2", q.Get("codes"))
	require.Equal(t, "mz", q.Get("tenantId"))
	require.Empty(t, body)

	_, body = FacilityConfig(e).Search.Build("mz", "id", []string{"F1"})
	require.Equal(t, map[string]any{"Facility": map[string]any{"id": []string{"F1"}}}, body)
}

func TestMapFacilityRow(t *testing.T) {
	t.Parallel()

	out, err := MapFacilityRow(domain.SheetRow{Number: 2, Values: map[string]any{
		ColumnFacilityName:     "Alpha",
		ColumnFacilityStatus:   "Temporary",
		ColumnFacilityUsage:    "Warehouse",
		ColumnFacilityCapacity: "25",
		ColumnBoundaryCode:     "B1, B2",
	}}, MapContext{TenantID: "mz"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"tenantId":        "mz",
		"name":            "Alpha",
		"isPermanent":     false,
		"usage":           "Warehouse",
		"storageCapacity": float64(25),
		"address":         map[string]any{"tenantId": "mz", "locality": map[string]any{"code": "B1"}},
	}, out)

	_, err = MapFacilityRow(domain.SheetRow{Values: map[string]any{ColumnFacilityCapacity: "lots"}}, MapContext{})
	require.Error(t, err)
}

func TestMapUserRow(t *testing.T) {
	t.Parallel()

	out, err := MapUserRow(domain.SheetRow{Values: map[string]any{
		ColumnUserName:       "Asha",
		ColumnUserPhone:      float64(9876543210),
		ColumnUserRole:       "Distributor, Field Supervisor",
		ColumnUserEmployment: "Permanent",
		ColumnBoundaryCode:   "B1",
	}}, MapContext{TenantID: "mz", HierarchyType: "ADMIN"})
	require.NoError(t, err)

	user := out["user"].(map[string]any)
	require.Equal(t, "9876543210", user["mobileNumber"])
	require.Equal(t, "PERMANENT", out["employeeType"])
	roles := user["roles"].([]map[string]any)
	require.Len(t, roles, 2)
	require.Equal(t, "FIELD_SUPERVISOR", roles[1]["code"])
	jur := out["jurisdictions"].([]map[string]any)
	require.Equal(t, "ADMIN", jur[0]["hierarchy"])
	require.NotContains(t, out, "code")
}

func TestMapTargetRow(t *testing.T) {
	t.Parallel()

	out, err := MapTargetRow(domain.SheetRow{SheetName: "District A", Values: map[string]any{
		ColumnBoundaryCode: "B1",
		"Target 1":         float64(10),
	}}, MapContext{TenantID: "mz"})
	require.NoError(t, err)
	require.Equal(t, "B1", out["boundaryCode"])
	require.Equal(t, map[string]any{"Target 1": float64(10)}, out["targets"])

	_, err = MapTargetRow(domain.SheetRow{Values: map[string]any{}}, MapContext{})
	require.Error(t, err)
}

func TestSplitCodes(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"B1", "B2"}, SplitCodes(" B1 ,B2,, "))
	require.Nil(t, SplitCodes(nil))
}
