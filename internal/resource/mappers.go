package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/healthcampaign/project-factory/internal/domain"
)

// Coercion is the optional type conversion applied to a column value.
type Coercion int

const (
	CoerceNone Coercion = iota
	CoerceString
	CoerceNumber
	CoerceBoolean
)

// Truthy mirrors how a sheet cell signals presence.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case bool:
		return val
	}
	return true
}

// column reads a cell, applies an optional lookup table then coerces it.
// The bool result reports whether the cell carried a value.
func column(row domain.SheetRow, name string, coerce Coercion, lookup map[string]any) (any, bool, error) {
	v, ok := row.Values[name]
	if !ok || v == nil {
		return nil, false, nil
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false, nil
	}
	if lookup != nil {
		if mapped, ok := lookup[domain.Stringify(v)]; ok {
			v = mapped
		}
	}
	out, err := Coerce(v, coerce)
	if err != nil {
		return nil, true, fmt.Errorf("column %s: %w", name, err)
	}
	return out, true, nil
}

// Coerce converts v to the requested type.
func Coerce(v any, c Coercion) (any, error) {
	switch c {
	case CoerceString:
		return domain.Stringify(v), nil
	case CoerceNumber:
		switch val := v.(type) {
		case float64:
			return val, nil
		case int:
			return float64(val), nil
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", val)
			}
			return n, nil
		}
		return nil, fmt.Errorf("%v is not a number", v)
	case CoerceBoolean:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", val)
			}
			return b, nil
		case float64:
			return val != 0, nil
		}
		return nil, fmt.Errorf("%v is not a boolean", v)
	}
	return v, nil
}

// SplitCodes splits a comma joined cell into trimmed, non-empty codes.
func SplitCodes(v any) []string {
	raw := domain.Stringify(v)
	if raw == "" {
		return nil
	}
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		if code := strings.TrimSpace(part); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

var facilityStatusLookup = map[string]any{"Permanent": true, "Temporary": false}

// MapFacilityRow builds a facility create payload.
func MapFacilityRow(row domain.SheetRow, mc MapContext) (map[string]any, error) {
	out := map[string]any{"tenantId": mc.TenantID}

	if v, ok, err := column(row, ColumnFacilityName, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		out["name"] = v
	}
	if v, ok, err := column(row, ColumnFacilityStatus, CoerceBoolean, facilityStatusLookup); err != nil {
		return nil, err
	} else if ok {
		out["isPermanent"] = v
	}
	if v, ok, err := column(row, ColumnFacilityUsage, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		out["usage"] = v
	}
	if v, ok, err := column(row, ColumnFacilityCapacity, CoerceNumber, nil); err != nil {
		return nil, err
	} else if ok {
		out["storageCapacity"] = v
	}
	if v, ok, err := column(row, ColumnFacilityCode, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		out["id"] = v
	}
	address := map[string]any{"tenantId": mc.TenantID}
	if codes := SplitCodes(row.Values[ColumnBoundaryCode]); len(codes) > 0 {
		address["locality"] = map[string]any{"code": codes[0]}
	}
	out["address"] = address
	return out, nil
}

var employmentLookup = map[string]any{"Permanent": "PERMANENT", "Temporary": "TEMPORARY"}

// MapUserRow builds an employee create payload.
func MapUserRow(row domain.SheetRow, mc MapContext) (map[string]any, error) {
	user := map[string]any{
		"tenantId": mc.TenantID,
		"type":     "EMPLOYEE",
	}
	if v, ok, err := column(row, ColumnUserName, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		user["name"] = v
	}
	if v, ok, err := column(row, ColumnUserPhone, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		user["mobileNumber"] = v
	}
	var roles []map[string]any
	for _, role := range SplitCodes(row.Values[ColumnUserRole]) {
		roles = append(roles, map[string]any{
			"name":     role,
			"code":     strings.ToUpper(strings.ReplaceAll(role, " ", "_")),
			"tenantId": mc.TenantID,
		})
	}
	if len(roles) > 0 {
		user["roles"] = roles
	}

	out := map[string]any{"tenantId": mc.TenantID, "user": user}
	if v, ok, err := column(row, ColumnUserEmployment, CoerceString, employmentLookup); err != nil {
		return nil, err
	} else if ok {
		out["employeeType"] = v
	}
	if v, ok, err := column(row, ColumnUserLoginName, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		out["code"] = v
		user["userName"] = v
	}

	var jurisdictions []map[string]any
	for _, code := range SplitCodes(row.Values[ColumnBoundaryCode]) {
		jurisdictions = append(jurisdictions, map[string]any{
			"boundary":  code,
			"hierarchy": mc.HierarchyType,
			"tenantId":  mc.TenantID,
		})
	}
	if len(jurisdictions) > 0 {
		out["jurisdictions"] = jurisdictions
	}
	return out, nil
}

// MapBoundaryRow builds a boundary entity payload.
func MapBoundaryRow(row domain.SheetRow, mc MapContext) (map[string]any, error) {
	out := map[string]any{"tenantId": mc.TenantID}
	code, ok, err := column(row, ColumnBoundaryCode, CoerceString, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("column %s: boundary code is required", ColumnBoundaryCode)
	}
	out["code"] = code

	additional := map[string]any{}
	if v, ok, err := column(row, ColumnBoundaryType, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		additional["boundaryType"] = v
	}
	if v, ok, err := column(row, ColumnBoundaryName, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		additional["name"] = v
	}
	if v, ok, err := column(row, ColumnParentCode, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		additional["parent"] = v
	}
	if len(additional) > 0 {
		out["additionalDetails"] = additional
	}
	if v, ok, err := column(row, ColumnBoundaryID, CoerceString, nil); err != nil {
		return nil, err
	} else if ok {
		out["id"] = v
	}
	if g, ok := row.Values["geometry"]; ok && g != nil {
		out["geometry"] = g
	}
	return out, nil
}

// MapTargetRow collects every target column of a target sheet row.
func MapTargetRow(row domain.SheetRow, mc MapContext) (map[string]any, error) {
	code, ok, err := column(row, ColumnBoundaryCode, CoerceString, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("column %s: boundary code is required", ColumnBoundaryCode)
	}
	targets := map[string]any{}
	for key, v := range row.Values {
		if key == ColumnBoundaryCode {
			continue
		}
		targets[key] = v
	}
	return map[string]any{
		"tenantId":     mc.TenantID,
		"boundaryCode": code,
		"sheetName":    row.SheetName,
		"targets":      targets,
	}, nil
}
