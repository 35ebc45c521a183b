package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/healthcampaign/project-factory/internal/cache"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/sheet"
)

type stubRelationships struct {
	trees []domain.Boundary
	calls int
}

func (s *stubRelationships) SearchRelationships(_ context.Context, _ client.RequestInfo, _ client.RelationshipSearch) ([]domain.Boundary, error) {
	s.calls++
	return s.trees, nil
}

var _ RelationshipSearcher = (*stubRelationships)(nil)

type stubIndividuals struct {
	existing map[string]bool
	batches  [][]string
}

func (s *stubIndividuals) ExistingMobileNumbers(_ context.Context, _ client.RequestInfo, _ string, numbers []string) ([]string, error) {
	s.batches = append(s.batches, numbers)
	var out []string
	for _, n := range numbers {
		if s.existing[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

var _ MobileNumberChecker = (*stubIndividuals)(nil)

func intPtr(v int) *int { return &v }

func facilitySchema() domain.Schema {
	return domain.Schema{
		Properties: map[string]domain.Property{
			"Facility Name":   {Name: "Facility Name", Type: domain.PropertyTypeString, IsRequired: true, IsUnique: true, MaxLength: intPtr(20)},
			"Facility Status": {Name: "Facility Status", Type: domain.PropertyTypeEnum, Enum: []string{"Permanent", "Temporary"}},
			"Capacity":        {Name: "Capacity", Type: domain.PropertyTypeNumber},
		},
		Columns:  []string{"Facility Name", "Facility Status", "Capacity"},
		Required: []string{"Facility Name"},
		Unique:   []string{"Facility Name"},
	}
}

func row(n int, values map[string]any) domain.SheetRow {
	return domain.SheetRow{Number: n, Values: values}
}

func TestValidateSchemaRules(t *testing.T) {
	t.Parallel()

	table := sheet.Table{
		SheetName: "Facilities",
		Headers:   []string{"facility name", "Facility Status", "Capacity"},
		Rows: []domain.SheetRow{
			row(2, map[string]any{"facility name": "Alpha", "Facility Status": "Permanent", "Capacity": float64(10)}),
			row(3, map[string]any{"Facility Status": "Mobile"}),
			row(5, map[string]any{"facility name": "Alpha", "Capacity": "lots"}),
		},
	}

	res, err := NewValidator(nil).Validate(context.Background(), table, facilitySchema(), BoundaryValidationConfig{})
	require.NoError(t, err)
	require.False(t, res.Valid)

	byRow := map[int][]string{}
	for _, e := range res.Errors {
		byRow[e.RowNumber] = append(byRow[e.RowNumber], e.Message)
	}
	require.NotContains(t, byRow, 2)
	require.Len(t, byRow[3], 2)
	require.Contains(t, byRow[3], "required field 'Facility Name' is missing")
	require.Len(t, byRow[5], 2)
	require.Contains(t, byRow[5], `Duplicate value "Alpha" for column "Facility Name", first seen at row 2`)

	details := res.Details()
	require.Len(t, details, 4)
	require.Equal(t, domain.RowStatusInvalid, details[0].Status)
}

func TestValidateMissingColumnSuggestsHeader(t *testing.T) {
	t.Parallel()

	table := sheet.Table{SheetName: "Facilities", Headers: []string{"Facilty Name", "Capacity"}}
	_, err := NewValidator(nil).Validate(context.Background(), table, facilitySchema(), BoundaryValidationConfig{})

	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, domain.CodeValidationError, appErr.Code)
	require.Contains(t, appErr.Description, `did you mean "Facilty Name"?`)
}

func TestValidateBoundaryCodesSplitsCommaJoinedCells(t *testing.T) {
	t.Parallel()

	rel := &stubRelationships{trees: []domain.Boundary{{
		Code: "ROOT", BoundaryType: "Country",
		Children: []domain.Boundary{{Code: "B1", BoundaryType: "District"}, {Code: "B3", BoundaryType: "District"}},
	}}}
	codes := NewBoundaryCodes(rel, cache.NewMemoryCache(0, 0), nil)
	v := NewValidator(codes)

	schema := domain.Schema{Properties: map[string]domain.Property{}}
	table := sheet.Table{
		SheetName: "Facilities",
		Headers:   []string{"Boundary Code"},
		Rows: []domain.SheetRow{
			row(2, map[string]any{"Boundary Code": "B1,B2"}),
			row(3, map[string]any{"Boundary Code": "B1, B3"}),
		},
	}
	bcfg := BoundaryValidationConfig{Column: "Boundary Code", TenantID: "mz", HierarchyType: "ADMIN"}

	res, err := v.Validate(context.Background(), table, schema, bcfg)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Equal(t, 2, res.Errors[0].RowNumber)
	require.Equal(t, "Boundary codes B2 do not exist in hierarchy ADMIN", res.Errors[0].Message)

	_, err = v.Validate(context.Background(), table, schema, bcfg)
	require.NoError(t, err)
	require.Equal(t, 1, rel.calls, "hierarchy lookups are cached")
}

func TestTargets(t *testing.T) {
	t.Parallel()

	tables := []sheet.Table{{
		SheetName: "District A",
		Headers:   []string{"Boundary Code", "Target 1", "Target 2"},
		Rows: []domain.SheetRow{
			{Number: 2, SheetName: "District A", Values: map[string]any{"Boundary Code": "B1", "Target 1": float64(10), "Target 2": "20"}},
			{Number: 3, SheetName: "District A", Values: map[string]any{"Boundary Code": "B2", "Target 1": 1.5}},
			{Number: 4, SheetName: "District A", Values: map[string]any{"Boundary Code": "B3", "Target 1": float64(-1), "Target 2": "x"}},
			{Number: 5, SheetName: "District A", Values: map[string]any{"Boundary Code": "B4", "Target 1": float64(100000001), "Target 2": float64(100000000)}},
		},
	}}
	require.NoError(t, PrecheckTargets(tables, "Boundary Code"))

	res := ValidateTargets(tables, "Boundary Code")
	require.Len(t, res.Errors, 3)
	require.Equal(t, 3, res.Errors[0].RowNumber)
	require.Equal(t, `Target value for "Target 1" must be a whole number; Target value for "Target 2" is missing`, res.Errors[0].Message)
	require.Equal(t, `Target value for "Target 1" must be between 0 and 100000000; Target value for "Target 2" must be a number`, res.Errors[1].Message)
	require.Equal(t, 5, res.Errors[2].RowNumber)
	require.Equal(t, "District A", res.Errors[2].SheetName)

	err := PrecheckTargets([]sheet.Table{{SheetName: "District B", Headers: []string{"Target 1"}}}, "Boundary Code")
	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	require.Contains(t, appErr.Description, `sheet District B has no "Boundary Code" column`)
}

func userRecord(row int, mobile string) domain.Record {
	return domain.Record{RowNumber: row, Data: map[string]any{"user": map[string]any{"mobileNumber": mobile}}}
}

func TestMatchUserValidation(t *testing.T) {
	t.Parallel()

	ind := &stubIndividuals{existing: map[string]bool{"9000000002": true}}
	uv := NewUserValidator(ind, 2, nil)

	details, err := uv.MatchUserValidation(context.Background(), client.RequestInfo{}, "mz", []domain.Record{
		userRecord(2, "9000000001"),
		userRecord(3, "9000000002"),
		userRecord(4, "9000000003"),
		userRecord(5, "9000000001"),
	})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"9000000001", "9000000002"}, {"9000000003"}}, ind.batches)
	require.Equal(t, []domain.SheetErrorDetail{
		{Status: domain.RowStatusInvalid, RowNumber: 5, ErrorDetails: "Duplicate mobileNumber 9000000001, first seen at row 2"},
		{Status: domain.RowStatusInvalid, RowNumber: 3, ErrorDetails: "User with mobileNumber 9000000002 already exists"},
	}, details)
}
