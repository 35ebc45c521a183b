package convert

import (
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/resource"
)

// TypeData holds converted rows split by whether they must be created or
// verified against existing records.
type TypeData struct {
	Create []domain.Record
	Search []domain.Record
}

// ConvertToTypeData maps every row through cfg.Mapper and routes it to
// exactly one bucket. Rows the mapper rejects are returned as INVALID entries
// and land in neither bucket.
func ConvertToTypeData(rows []domain.SheetRow, cfg resource.Config, mc resource.MapContext) (TypeData, []domain.SheetErrorDetail) {
	var (
		data    TypeData
		details []domain.SheetErrorDetail
	)
	for _, row := range rows {
		payload, err := cfg.Mapper(row, mc)
		if err != nil {
			details = append(details, domain.SheetErrorDetail{
				Status:       domain.RowStatusInvalid,
				RowNumber:    row.Number,
				SheetName:    row.SheetName,
				ErrorDetails: err.Error(),
			})
			continue
		}
		payload["tenantId"] = mc.TenantID
		rec := domain.Record{RowNumber: row.Number, Data: payload}
		if cfg.RoutesToSearch(row) {
			data.Search = append(data.Search, rec)
		} else {
			data.Create = append(data.Create, rec)
		}
	}
	return data, details
}
