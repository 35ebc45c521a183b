package sheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/localization"
)

// GeometryColumn holds a feature's geometry on rows read from GeoJSON.
const GeometryColumn = "geometry"

// GeoJSONSheetName labels rows that came from a feature collection.
const GeoJSONSheetName = "GeoJSON"

// ParseGeoJSON turns each feature into a row. Feature i is numbered i+2 so
// annotations line up with the equivalent sheet layout.
func ParseGeoJSON(data []byte, localizer *localization.Localizer) (Table, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse geojson: %w", err)
	}

	table := Table{SheetName: GeoJSONSheetName}
	seen := make(map[string]bool)
	for i, feature := range fc.Features {
		values := make(map[string]any, len(feature.Properties)+1)
		for key, v := range feature.Properties {
			if strings.TrimSpace(key) == "" || v == nil {
				continue
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			column := localizer.Delocalize(key)
			values[column] = v
			if !seen[column] {
				seen[column] = true
				table.Headers = append(table.Headers, column)
			}
		}
		if feature.Geometry != nil {
			values[GeometryColumn] = geojson.NewGeometry(feature.Geometry)
		}
		table.Rows = append(table.Rows, domain.SheetRow{
			Number:    i + 2,
			SheetName: GeoJSONSheetName,
			Values:    values,
		})
	}
	sort.Strings(table.Headers)
	return table, nil
}
