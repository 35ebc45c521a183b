package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/resource"
)

func TestConvertToTypeDataRoutesEveryRowOnce(t *testing.T) {
	t.Parallel()

	cfg := resource.FacilityConfig(client.DefaultEndpoints())
	rows := []domain.SheetRow{
		{Number: 2, Values: map[string]any{resource.ColumnFacilityName: "Alpha"}},
		{Number: 3, Values: map[string]any{resource.ColumnFacilityName: "Beta", resource.ColumnFacilityCode: "F-9"}},
		{Number: 4, Values: map[string]any{resource.ColumnFacilityName: "Gamma", resource.ColumnFacilityCapacity: "lots"}},
		{Number: 6, Values: map[string]any{resource.ColumnFacilityName: "Delta", resource.ColumnFacilityCode: ""}},
	}

	data, details := ConvertToTypeData(rows, cfg, resource.MapContext{TenantID: "mz"})

	require.Len(t, data.Create, 2)
	require.Len(t, data.Search, 1)
	require.Equal(t, 2, data.Create[0].RowNumber)
	require.Equal(t, 6, data.Create[1].RowNumber)
	require.Equal(t, 3, data.Search[0].RowNumber)
	require.Equal(t, "F-9", data.Search[0].Data["id"])
	require.Equal(t, "mz", data.Create[0].Data["tenantId"])

	require.Len(t, details, 1)
	require.Equal(t, 4, details[0].RowNumber)
	require.Equal(t, domain.RowStatusInvalid, details[0].Status)
}
